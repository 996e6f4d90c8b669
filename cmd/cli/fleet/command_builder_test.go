package fleet_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	fleetcmd "github.com/temirov/gitfo/cmd/cli/fleet"
	fleetcore "github.com/temirov/gitfo/internal/fleet"
)

const (
	commandSubtestTemplateConstant = "%d_%s"
	healthyBranchConstant          = "main"
	configurationTemplateConstant  = `{
  "profiles": {
    "default": [
      { "owner": "acme", "repoName": "widget", "defaultBranch": "main" },
      { "owner": "acme", "repoName": "gadget", "defaultBranch": "main" }
    ],
    "tools": [
      { "owner": "initech", "repoName": "stapler", "localFolder": "office", "defaultBranch": "trunk" }
    ]
  }
}
`
)

// healthyEngine reports every registered checkout as clean and in sync.
type healthyEngine struct {
	mutex        sync.Mutex
	repositories map[string]bool
	calls        []string
}

func (engine *healthyEngine) record(call string, repositoryPath string) bool {
	engine.mutex.Lock()
	defer engine.mutex.Unlock()
	engine.calls = append(engine.calls, call+" "+filepath.Base(repositoryPath))
	return engine.repositories[filepath.Clean(repositoryPath)]
}

func (engine *healthyEngine) recordedCalls(prefix string) []string {
	engine.mutex.Lock()
	defer engine.mutex.Unlock()
	matching := make([]string, 0)
	for _, call := range engine.calls {
		if strings.HasPrefix(call, prefix) {
			matching = append(matching, call)
		}
	}
	sort.Strings(matching)
	return matching
}

func (engine *healthyEngine) Open(_ context.Context, repositoryPath string) error {
	if !engine.record("open", repositoryPath) {
		return fleetcore.ErrNotRepository
	}
	return nil
}

func (engine *healthyEngine) CurrentBranch(_ context.Context, repositoryPath string) (string, error) {
	engine.record("branch", repositoryPath)
	return healthyBranchConstant, nil
}

func (engine *healthyEngine) TrackingReference(_ context.Context, repositoryPath string, branch string) (fleetcore.TrackingReference, error) {
	engine.record("tracking", repositoryPath)
	return fleetcore.TrackingReference{Remote: "origin", Branch: branch, Reference: "origin/" + branch}, nil
}

func (engine *healthyEngine) AheadBehind(_ context.Context, repositoryPath string, _ string, _ string) (uint, uint, error) {
	engine.record("divergence", repositoryPath)
	return 0, 0, nil
}

func (engine *healthyEngine) IsDirty(_ context.Context, repositoryPath string) (bool, error) {
	engine.record("dirty", repositoryPath)
	return false, nil
}

func (engine *healthyEngine) ProbeRemote(_ context.Context, repositoryPath string, _ string) error {
	engine.record("probe", repositoryPath)
	return nil
}

func (engine *healthyEngine) Fetch(_ context.Context, repositoryPath string, _ string) error {
	engine.record("fetch", repositoryPath)
	return nil
}

func (engine *healthyEngine) Pull(_ context.Context, repositoryPath string) error {
	engine.record("pull", repositoryPath)
	return nil
}

func (engine *healthyEngine) Checkout(_ context.Context, repositoryPath string, branch string) error {
	engine.record("checkout "+branch, repositoryPath)
	return nil
}

type commandFixture struct {
	rootPath string
	engine   *healthyEngine
}

// newCommandFixture writes .gitfo and creates checkouts for the given relative paths.
func newCommandFixture(testInstance *testing.T, writeConfiguration bool, checkouts ...string) commandFixture {
	testInstance.Helper()
	rootPath := testInstance.TempDir()
	engine := &healthyEngine{repositories: make(map[string]bool)}
	for _, checkout := range checkouts {
		checkoutPath := filepath.Join(rootPath, checkout)
		require.NoError(testInstance, os.MkdirAll(checkoutPath, 0o755))
		engine.repositories[filepath.Clean(checkoutPath)] = true
	}
	if writeConfiguration {
		require.NoError(testInstance, os.WriteFile(fleetcore.ConfigPath(rootPath), []byte(configurationTemplateConstant), 0o644))
	}
	return commandFixture{rootPath: rootPath, engine: engine}
}

func (fixture commandFixture) execute(testInstance *testing.T, selection fleetcmd.Selection, arguments ...string) (string, error) {
	testInstance.Helper()
	selection.RootDirectory = fixture.rootPath
	builder := fleetcmd.CommandBuilder{
		Engine: fixture.engine,
		SelectionProvider: func() fleetcmd.Selection {
			return selection
		},
	}
	commands, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	rootCommand := &cobra.Command{Use: "gitfo", SilenceUsage: true, SilenceErrors: true}
	rootCommand.AddCommand(commands...)
	outputBuffer := &bytes.Buffer{}
	rootCommand.SetOut(outputBuffer)
	rootCommand.SetErr(outputBuffer)
	rootCommand.SetArgs(arguments)

	executionError := rootCommand.ExecuteContext(context.Background())
	return outputBuffer.String(), executionError
}

func TestBuildRegistersFleetCommands(testInstance *testing.T) {
	builder := fleetcmd.CommandBuilder{}
	commands, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	names := make([]string, 0, len(commands))
	for _, command := range commands {
		names = append(names, command.Name())
	}
	require.Equal(testInstance, []string{"generate", "status", "fetch", "pull", "checkout", "sync"}, names)
}

func TestStatusCommand(testInstance *testing.T) {
	testCases := []struct {
		name            string
		writeConfig     bool
		selection       fleetcmd.Selection
		arguments       []string
		expectedError   error
		expectedOutputs []string
	}{
		{
			name:            "default_profile",
			writeConfig:     true,
			arguments:       []string{"status"},
			expectedOutputs: []string{"acme/widget", "acme/gadget", "DirectoryMissing"},
		},
		{
			name:            "named_profile",
			writeConfig:     true,
			selection:       fleetcmd.Selection{ProfileName: "tools", ProfileExplicit: true},
			arguments:       []string{"status", "--offline"},
			expectedOutputs: []string{"office/stapler", "main"},
		},
		{
			name:          "missing_configuration",
			writeConfig:   false,
			arguments:     []string{"status"},
			expectedError: fleetcore.ErrConfigNotFound,
		},
		{
			name:          "unknown_explicit_profile",
			writeConfig:   true,
			selection:     fleetcmd.Selection{ProfileName: "ghost", ProfileExplicit: true},
			arguments:     []string{"status"},
			expectedError: fleetcore.ErrProfileNotFound,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fixture := newCommandFixture(testInstance, testCase.writeConfig, "acme/widget", "office/stapler")
			output, executionError := fixture.execute(testInstance, testCase.selection, testCase.arguments...)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, executionError, testCase.expectedError)
				return
			}
			require.NoError(testInstance, executionError)
			for _, expectedOutput := range testCase.expectedOutputs {
				require.Contains(testInstance, output, expectedOutput)
			}
		})
	}
}

func TestStatusOfflineSkipsProbe(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance, true, "acme/widget", "acme/gadget")

	_, executionError := fixture.execute(testInstance, fleetcmd.Selection{}, "status", "--offline")
	require.NoError(testInstance, executionError)
	require.Empty(testInstance, fixture.engine.recordedCalls("probe"))

	_, onlineError := fixture.execute(testInstance, fleetcmd.Selection{}, "status")
	require.NoError(testInstance, onlineError)
	require.Equal(testInstance, []string{"probe gadget", "probe widget"}, fixture.engine.recordedCalls("probe"))
}

func TestSyncCommandReportsRepositoryFailures(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance, true, "acme/widget")

	output, executionError := fixture.execute(testInstance, fleetcmd.Selection{}, "sync")
	require.ErrorIs(testInstance, executionError, fleetcore.ErrRepositoryFailures)
	require.Equal(testInstance, fleetcore.ExitCodeRepositoryFailures, fleetcore.ExitCodeForError(executionError))

	require.Contains(testInstance, output, "Sync succeeded for acme/widget")
	require.Contains(testInstance, output, "Sync failed for acme/gadget")
	require.Less(testInstance, strings.Index(output, "acme/widget"), strings.Index(output, "acme/gadget"))
	require.Equal(testInstance, []string{"pull widget"}, fixture.engine.recordedCalls("pull"))
}

func TestSyncAllProfiles(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance, true, "acme/widget", "acme/gadget", "office/stapler")

	output, executionError := fixture.execute(testInstance, fleetcmd.Selection{}, "sync", "--all")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "Profile default")
	require.Contains(testInstance, output, "Profile tools")
	require.Contains(testInstance, output, "3 attempted, 3 succeeded, 0 failed")
	require.Equal(testInstance, []string{"checkout main gadget", "checkout main widget", "checkout trunk stapler"}, fixture.engine.recordedCalls("checkout"))
}

func TestCheckoutCommandUsesRequestedBranch(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance, true, "acme/widget", "acme/gadget")

	output, executionError := fixture.execute(testInstance, fleetcmd.Selection{}, "checkout", "develop", "--concurrency", "1")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "Checkout succeeded for acme/widget")
	require.Equal(testInstance, []string{"checkout develop gadget", "checkout develop widget"}, fixture.engine.recordedCalls("checkout"))
}

func TestFetchAndPullCommands(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance, true, "acme/widget", "acme/gadget")

	_, fetchError := fixture.execute(testInstance, fleetcmd.Selection{}, "fetch")
	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, []string{"fetch gadget", "fetch widget"}, fixture.engine.recordedCalls("fetch"))

	_, pullError := fixture.execute(testInstance, fleetcmd.Selection{}, "pull", "--timeout", "30s")
	require.NoError(testInstance, pullError)
	require.Equal(testInstance, []string{"pull gadget", "pull widget"}, fixture.engine.recordedCalls("pull"))
}

func TestGenerateCommandRefusesExistingConfiguration(testInstance *testing.T) {
	fixture := newCommandFixture(testInstance, true)
	original, readError := os.ReadFile(fleetcore.ConfigPath(fixture.rootPath))
	require.NoError(testInstance, readError)

	_, executionError := fixture.execute(testInstance, fleetcmd.Selection{}, "generate")
	require.ErrorIs(testInstance, executionError, fleetcore.ErrGenerateConflict)
	require.Equal(testInstance, fleetcore.ExitCodeConfigInvalid, fleetcore.ExitCodeForError(executionError))

	current, currentReadError := os.ReadFile(fleetcore.ConfigPath(fixture.rootPath))
	require.NoError(testInstance, currentReadError)
	require.Equal(testInstance, original, current)
}
