package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitfo/internal/fleet"
)

func TestExecuteReportsCommandBuildFailure(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	buildFailure := errors.New("fleet command builder not configured")
	application := NewApplication()
	application.commandBuildError = buildFailure

	outputBuffer := &bytes.Buffer{}
	application.RootCommand().SetOut(outputBuffer)
	application.RootCommand().SetArgs([]string{"--help"})

	executionError := application.ExecuteContext(context.Background())
	require.ErrorIs(t, executionError, buildFailure)

	var exitError ExitError
	require.ErrorAs(t, executionError, &exitError)
	require.Equal(t, fleet.ExitCodeConfigNotFound, exitError.Code)
	require.Empty(t, outputBuffer.String())
}

func TestNewApplicationBuildsFleetCommands(t *testing.T) {
	application := NewApplication()
	require.NoError(t, application.commandBuildError)
	require.NotEmpty(t, application.RootCommand().Commands())
}
