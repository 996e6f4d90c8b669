package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitfo/cmd/cli"
	fleetcmd "github.com/temirov/gitfo/cmd/cli/fleet"
	"github.com/temirov/gitfo/internal/fleet"
)

const (
	testConfigurationFileNameConstant  = "config.yaml"
	testEmptyProfileConstant           = `{"profiles": {"default": []}}`
	testTwoProfilesConstant            = `{"profiles": {"default": [], "tools": [{"owner": "initech", "repoName": "stapler", "defaultBranch": "main"}]}}`
	testMalformedConfigurationConstant = `{"profiles": [`
	testProfileConfigurationConstant   = "fleet:\n  profile: tools\n  probe_remote: false\n"
	testUnknownSectionConstant         = "tools:\n  audit: {}\n"
)

// offlineEngine treats every checkout as missing a repository.
type offlineEngine struct{}

func (offlineEngine) Open(context.Context, string) error {
	return fleet.ErrNotRepository
}

func (offlineEngine) CurrentBranch(context.Context, string) (string, error) {
	return "", fleet.ErrNotRepository
}

func (offlineEngine) TrackingReference(context.Context, string, string) (fleet.TrackingReference, error) {
	return fleet.TrackingReference{}, fleet.ErrNoRemoteTracking
}

func (offlineEngine) AheadBehind(context.Context, string, string, string) (uint, uint, error) {
	return 0, 0, fleet.ErrNotRepository
}

func (offlineEngine) IsDirty(context.Context, string) (bool, error) {
	return false, fleet.ErrNotRepository
}

func (offlineEngine) ProbeRemote(context.Context, string, string) error {
	return fleet.ErrNotRepository
}

func (offlineEngine) Fetch(context.Context, string, string) error {
	return fleet.ErrNotRepository
}

func (offlineEngine) Pull(context.Context, string) error {
	return fleet.ErrNotRepository
}

func (offlineEngine) Checkout(context.Context, string, string) error {
	return fleet.ErrNotRepository
}

func isolateConfiguration(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeControlFile(t *testing.T, rootPath string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(fleet.ConfigPath(rootPath), []byte(content), 0o644))
}

func runApplication(t *testing.T, arguments ...string) (string, error) {
	t.Helper()
	application := cli.NewApplicationWithCommandBuilder(fleetcmd.CommandBuilder{Engine: offlineEngine{}})
	outputBuffer := &bytes.Buffer{}
	application.RootCommand().SetOut(outputBuffer)
	application.RootCommand().SetErr(outputBuffer)
	application.RootCommand().SetArgs(arguments)
	executionError := application.ExecuteContext(context.Background())
	return outputBuffer.String(), executionError
}

func exitCodeOf(t *testing.T, executionError error) int {
	t.Helper()
	if executionError == nil {
		return fleet.ExitCodeSuccess
	}
	var exitError cli.ExitError
	require.True(t, errors.As(executionError, &exitError))
	return exitError.Code
}

func TestApplicationRegistersFleetCommands(t *testing.T) {
	isolateConfiguration(t)
	application := cli.NewApplication()

	registered := map[string]bool{}
	for _, command := range application.RootCommand().Commands() {
		registered[command.Name()] = true
	}
	for _, expected := range []string{"generate", "status", "fetch", "pull", "checkout", "sync"} {
		require.True(t, registered[expected], expected)
	}

	for _, flagName := range []string{"config", "log-level", "log-format", "directory", "profile"} {
		require.NotNil(t, application.RootCommand().PersistentFlags().Lookup(flagName), flagName)
	}
	require.NotNil(t, application.RootCommand().PersistentFlags().ShorthandLookup("C"))
	require.NotNil(t, application.RootCommand().PersistentFlags().ShorthandLookup("p"))
}

func TestApplicationExitCodes(t *testing.T) {
	testCases := []struct {
		name             string
		controlFile      string
		arguments        func(rootPath string) []string
		expectedExitCode int
		expectedOutput   string
	}{
		{
			name: "missing_control_directory",
			arguments: func(rootPath string) []string {
				return []string{"status", "-C", filepath.Join(rootPath, "absent")}
			},
			expectedExitCode: fleet.ExitCodeConfigNotFound,
		},
		{
			name: "missing_control_file",
			arguments: func(rootPath string) []string {
				return []string{"status", "-C", rootPath}
			},
			expectedExitCode: fleet.ExitCodeConfigNotFound,
		},
		{
			name:        "malformed_control_file",
			controlFile: testMalformedConfigurationConstant,
			arguments: func(rootPath string) []string {
				return []string{"status", "-C", rootPath}
			},
			expectedExitCode: fleet.ExitCodeConfigInvalid,
		},
		{
			name:        "unknown_explicit_profile",
			controlFile: testEmptyProfileConstant,
			arguments: func(rootPath string) []string {
				return []string{"status", "--directory", rootPath, "--profile", "ghost"}
			},
			expectedExitCode: fleet.ExitCodeConfigInvalid,
		},
		{
			name:        "generate_conflict",
			controlFile: testEmptyProfileConstant,
			arguments: func(rootPath string) []string {
				return []string{"generate", "-C", rootPath}
			},
			expectedExitCode: fleet.ExitCodeConfigInvalid,
		},
		{
			name:        "empty_profile_status",
			controlFile: testEmptyProfileConstant,
			arguments: func(rootPath string) []string {
				return []string{"status", "-C", rootPath}
			},
			expectedExitCode: fleet.ExitCodeSuccess,
			expectedOutput:   "No git repos found",
		},
		{
			name:        "failing_repository_sync",
			controlFile: testTwoProfilesConstant,
			arguments: func(rootPath string) []string {
				return []string{"sync", "-C", rootPath, "-p", "tools"}
			},
			expectedExitCode: fleet.ExitCodeRepositoryFailures,
			expectedOutput:   "Sync failed for initech/stapler",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			isolateConfiguration(t)
			rootPath := t.TempDir()
			if len(testCase.controlFile) > 0 {
				writeControlFile(t, rootPath, testCase.controlFile)
			}

			output, executionError := runApplication(t, testCase.arguments(rootPath)...)
			require.Equal(t, testCase.expectedExitCode, exitCodeOf(t, executionError))
			if len(testCase.expectedOutput) > 0 {
				require.Contains(t, output, testCase.expectedOutput)
			}
		})
	}
}

func TestApplicationConfigurationFileSelectsProfile(t *testing.T) {
	isolateConfiguration(t)
	rootPath := t.TempDir()
	writeControlFile(t, rootPath, testTwoProfilesConstant)

	configurationPath := filepath.Join(t.TempDir(), testConfigurationFileNameConstant)
	require.NoError(t, os.WriteFile(configurationPath, []byte(testProfileConfigurationConstant), 0o644))

	output, executionError := runApplication(t, "status", "--config", configurationPath, "-C", rootPath)
	require.NoError(t, executionError)
	require.Contains(t, output, "initech/stapler")
	require.Contains(t, output, "DirectoryMissing")
}

func TestApplicationEnvironmentProfileIsExplicit(t *testing.T) {
	isolateConfiguration(t)
	rootPath := t.TempDir()
	writeControlFile(t, rootPath, testTwoProfilesConstant)
	t.Setenv("GITFO_FLEET_PROFILE", "ghost")

	_, executionError := runApplication(t, "status", "-C", rootPath)
	require.Equal(t, fleet.ExitCodeConfigInvalid, exitCodeOf(t, executionError))
	require.ErrorIs(t, executionError, fleet.ErrProfileNotFound)
}

func TestApplicationRejectsUnknownConfigurationSection(t *testing.T) {
	isolateConfiguration(t)
	configurationPath := filepath.Join(t.TempDir(), testConfigurationFileNameConstant)
	require.NoError(t, os.WriteFile(configurationPath, []byte(testUnknownSectionConstant), 0o644))

	_, executionError := runApplication(t, "status", "--config", configurationPath, "-C", t.TempDir())
	require.Error(t, executionError)
	require.Equal(t, fleet.ExitCodeConfigNotFound, exitCodeOf(t, executionError))
}

func TestEmbeddedDefaultConfigurationIsValid(t *testing.T) {
	content, configurationType := cli.EmbeddedDefaultConfiguration()
	require.Equal(t, "yaml", configurationType)
	require.NoError(t, cli.ValidateConfigurationDocument(content))
	require.Error(t, cli.ValidateConfigurationDocument([]byte(testUnknownSectionConstant)))
	require.Error(t, cli.ValidateConfigurationDocument([]byte("common: [")))
}

func TestNewExitError(t *testing.T) {
	require.NoError(t, cli.NewExitError(nil))

	wrapped := cli.NewExitError(fleet.ErrGenerateConflict)
	var exitError cli.ExitError
	require.ErrorAs(t, wrapped, &exitError)
	require.Equal(t, fleet.ExitCodeConfigInvalid, exitError.Code)
	require.ErrorIs(t, wrapped, fleet.ErrGenerateConflict)
	require.Equal(t, wrapped, cli.NewExitError(wrapped))
}

func TestApplicationVersionFlag(t *testing.T) {
	isolateConfiguration(t)
	for _, flagName := range []string{"--version", "-v"} {
		output, executionError := runApplication(t, flagName)
		require.NoError(t, executionError, flagName)
		require.Equal(t, "gitfo "+cli.ResolveVersion()+"\n", output, flagName)
	}

	originalVersion := cli.Version
	t.Cleanup(func() {
		cli.Version = originalVersion
	})
	cli.Version = "v0.3.0"

	output, executionError := runApplication(t, "--version")
	require.NoError(t, executionError)
	require.Equal(t, "gitfo v0.3.0\n", output)
}
