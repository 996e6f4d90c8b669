package fleet

import (
	"strings"
	"time"
)

const (
	configurationProfileKeyConstant          = "profile"
	configurationConcurrencyKeyConstant      = "concurrency"
	configurationOperationTimeoutKeyConstant = "operation_timeout"
	configurationRemoteKeyConstant           = "remote"
	configurationProbeRemoteKeyConstant      = "probe_remote"
	configurationKeySeparatorConstant        = "."
	defaultConcurrencyConstant               = 4
	defaultOperationTimeoutConstant          = 2 * time.Minute
	defaultRemoteNameConstant                = "origin"

	// DefaultProfileRequestConstant is the profile requested when none is configured.
	// It is matched exactly before the "default" fallback applies.
	DefaultProfileRequestConstant = "main"
)

// Configuration captures settings shared by the fleet commands.
type Configuration struct {
	Profile          string        `mapstructure:"profile"`
	Concurrency      int           `mapstructure:"concurrency"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Remote           string        `mapstructure:"remote"`
	ProbeRemote      bool          `mapstructure:"probe_remote"`
}

// DefaultConfiguration returns baseline fleet command settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Profile:          "",
		Concurrency:      defaultConcurrencyConstant,
		OperationTimeout: defaultOperationTimeoutConstant,
		Remote:           defaultRemoteNameConstant,
		ProbeRemote:      true,
	}
}

// DefaultConfigurationValues produces Viper defaults for the fleet commands under rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationProfileKeyConstant:          defaults.Profile,
		prefix + configurationConcurrencyKeyConstant:      defaults.Concurrency,
		prefix + configurationOperationTimeoutKeyConstant: defaults.OperationTimeout.String(),
		prefix + configurationRemoteKeyConstant:           defaults.Remote,
		prefix + configurationProbeRemoteKeyConstant:      defaults.ProbeRemote,
	}
}

func (configuration Configuration) sanitize() Configuration {
	sanitized := configuration
	sanitized.Profile = strings.TrimSpace(configuration.Profile)
	sanitized.Remote = strings.TrimSpace(configuration.Remote)
	if len(sanitized.Remote) == 0 {
		sanitized.Remote = defaultRemoteNameConstant
	}
	if sanitized.Concurrency < 1 {
		sanitized.Concurrency = defaultConcurrencyConstant
	}
	if sanitized.OperationTimeout < 0 {
		sanitized.OperationTimeout = 0
	}
	return sanitized
}
