// Package utils exposes reusable helpers consumed by multiple commands.
//
// ConfigurationLoader layers embedded defaults, a config.yaml file, and
// GITFO_* environment variables through Viper. LoggerFactory builds the zap
// logger used for diagnostics.
package utils
