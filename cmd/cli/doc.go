// Package cli constructs the gitfo command-line interface. It wires the Cobra
// command hierarchy to the viper configuration loader and the zap logger, and
// maps fleet errors to process exit codes through ExitError.
package cli
