package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

const (
	environmentAssignmentSeparatorConstant = "="
	defaultTerminationGracePeriodConstant  = 3 * time.Second
)

// OSCommandRunner executes commands as child processes.
//
// When the execution context ends, the child first receives an interrupt so git can remove its
// lock files, and is killed once the grace period elapses.
type OSCommandRunner struct {
	terminationGracePeriod time.Duration
}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{terminationGracePeriod: defaultTerminationGracePeriodConstant}
}

// Run executes the supplied command and captures both output streams.
// A process stopped because executionContext ended is reported as the context error,
// not as a non-zero exit code.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergeEnvironment(os.Environ(), command.Details.EnvironmentVariables)
	process.Cancel = func() error {
		return process.Process.Signal(os.Interrupt)
	}
	process.WaitDelay = runner.gracePeriod()

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := process.Run()
	if contextError := executionContext.Err(); contextError != nil {
		return ExecutionResult{}, contextError
	}

	result := ExecutionResult{StandardOutput: standardOutput.String(), StandardError: standardError.String()}
	if runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		result.ExitCode = exitError.ExitCode()
	}
	return result, nil
}

func (runner *OSCommandRunner) gracePeriod() time.Duration {
	if runner == nil || runner.terminationGracePeriod <= 0 {
		return defaultTerminationGracePeriodConstant
	}
	return runner.terminationGracePeriod
}

// mergeEnvironment returns base with overrides applied. Keys in overrides replace matching
// entries of base rather than being appended after them.
func mergeEnvironment(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}

	merged := make([]string, 0, len(base)+len(overrides))
	for _, assignment := range base {
		key, _, _ := strings.Cut(assignment, environmentAssignmentSeparatorConstant)
		if _, overridden := overrides[key]; overridden {
			continue
		}
		merged = append(merged, assignment)
	}

	overrideKeys := make([]string, 0, len(overrides))
	for key := range overrides {
		overrideKeys = append(overrideKeys, key)
	}
	sort.Strings(overrideKeys)
	for _, key := range overrideKeys {
		merged = append(merged, key+environmentAssignmentSeparatorConstant+overrides[key])
	}
	return merged
}
