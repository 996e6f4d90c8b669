package cli

import (
	"errors"

	"github.com/temirov/gitfo/internal/fleet"
)

// ExitError carries the process exit code for a failed invocation.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the message of the wrapped error.
func (exitError ExitError) Error() string {
	if exitError.Err == nil {
		return ""
	}
	return exitError.Err.Error()
}

// Unwrap exposes the wrapped error.
func (exitError ExitError) Unwrap() error {
	return exitError.Err
}

// NewExitError wraps err with the exit code of its fleet error class.
// A nil error yields nil.
func NewExitError(err error) error {
	if err == nil {
		return nil
	}
	var existing ExitError
	if errors.As(err, &existing) {
		return err
	}
	return ExitError{Code: fleet.ExitCodeForError(err), Err: err}
}
