package fleet

import "errors"

// Exit codes surfaced by fleet operations.
const (
	ExitCodeSuccess            = 0
	ExitCodeConfigNotFound     = 1
	ExitCodeConfigInvalid      = 2
	ExitCodeRepositoryFailures = 3
)

var (
	// ErrConfigNotFound indicates the control directory or its .gitfo file is missing.
	ErrConfigNotFound = errors.New("fleet configuration not found")
	// ErrConfigParse indicates the .gitfo file exists but cannot be read or does not hold a valid configuration.
	ErrConfigParse = errors.New("fleet configuration could not be parsed")
	// ErrProfileNotFound indicates no profile could be selected.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrGenerateConflict indicates generate found an existing .gitfo file.
	ErrGenerateConflict = errors.New(".gitfo config already exists in target folder")
	// ErrDirectoryMissing indicates the repository checkout does not exist.
	ErrDirectoryMissing = errors.New("repository directory missing")
	// ErrNotRepository indicates the checkout path exists but holds no git repository.
	ErrNotRepository = errors.New("not a git repository")
	// ErrAuthenticationFailed indicates the remote rejected or required credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNoRemoteTracking indicates neither the current nor the default branch tracks a remote branch.
	ErrNoRemoteTracking = errors.New("no remote tracking branch")
	// ErrVcsOperationFailed wraps any other git failure.
	ErrVcsOperationFailed = errors.New("git operation failed")
	// ErrRepositoryFailures indicates at least one repository action failed.
	ErrRepositoryFailures = errors.New("one or more repositories failed")
)

// ExitCodeForError maps fatal errors to process exit codes.
// Errors outside the fleet taxonomy map to ExitCodeConfigNotFound.
func ExitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, ErrConfigParse), errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrGenerateConflict):
		return ExitCodeConfigInvalid
	case errors.Is(err, ErrRepositoryFailures):
		return ExitCodeRepositoryFailures
	default:
		return ExitCodeConfigNotFound
	}
}
