package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigurationSanitize(testInstance *testing.T) {
	sanitized := Configuration{Profile: "  work ", Concurrency: 0, OperationTimeout: -time.Second, Remote: " "}.sanitize()
	require.Equal(testInstance, "work", sanitized.Profile)
	require.Equal(testInstance, defaultConcurrencyConstant, sanitized.Concurrency)
	require.Equal(testInstance, time.Duration(0), sanitized.OperationTimeout)
	require.Equal(testInstance, defaultRemoteNameConstant, sanitized.Remote)
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	values := DefaultConfigurationValues("fleet")
	require.Equal(testInstance, "", values["fleet.profile"])
	require.Equal(testInstance, defaultConcurrencyConstant, values["fleet.concurrency"])
	require.Equal(testInstance, "2m0s", values["fleet.operation_timeout"])
	require.Equal(testInstance, "origin", values["fleet.remote"])
	require.Equal(testInstance, true, values["fleet.probe_remote"])
}
