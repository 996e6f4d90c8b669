package fleet

import "fmt"

// RepositoryStatus is the outcome of one inspection pass.
type RepositoryStatus int

// Repository statuses. RepositoryStatusUnknown marks a repository that has not been inspected.
const (
	RepositoryStatusUnknown RepositoryStatus = iota
	RepositoryStatusGood
	RepositoryStatusDirectoryMissing
	RepositoryStatusAuthenticationFailed
	RepositoryStatusNoRemote
)

var repositoryStatusLabels = map[RepositoryStatus]string{
	RepositoryStatusUnknown:              "Unknown",
	RepositoryStatusGood:                 "Good",
	RepositoryStatusDirectoryMissing:     "DirectoryMissing",
	RepositoryStatusAuthenticationFailed: "AuthenticationFailed",
	RepositoryStatusNoRemote:             "NoRemote",
}

var repositoryStatusErrors = map[RepositoryStatus]error{
	RepositoryStatusDirectoryMissing:     ErrDirectoryMissing,
	RepositoryStatusAuthenticationFailed: ErrAuthenticationFailed,
	RepositoryStatusNoRemote:             ErrNoRemoteTracking,
}

// String returns the status label rendered in place of a branch name.
func (status RepositoryStatus) String() string {
	if label, known := repositoryStatusLabels[status]; known {
		return label
	}
	return fmt.Sprintf("RepositoryStatus(%d)", int(status))
}

// Repository is the runtime handle of one profile entry bound to a local path.
// Inspection results are meaningful only when Status is RepositoryStatusGood.
type Repository struct {
	Name           string
	Path           string
	DefaultBranch  string
	Status         RepositoryStatus
	CurrentBranch  string
	TrackingRemote string
	TrackingBranch string
	Ahead          uint
	Behind         uint
	IsDirty        bool
	LastError      error
}

// StatusError returns the error explaining a non-Good status, or nil.
func (repository *Repository) StatusError() error {
	if repository.Status == RepositoryStatusGood {
		return nil
	}
	if repository.LastError != nil {
		return repository.LastError
	}
	if statusError, known := repositoryStatusErrors[repository.Status]; known {
		return statusError
	}
	return fmt.Errorf("%w: repository not inspected", ErrVcsOperationFailed)
}

func (repository *Repository) resetInspection() {
	repository.Status = RepositoryStatusUnknown
	repository.CurrentBranch = ""
	repository.TrackingRemote = ""
	repository.TrackingBranch = ""
	repository.Ahead = 0
	repository.Behind = 0
	repository.IsDirty = false
	repository.LastError = nil
}

func (repository *Repository) markFailed(status RepositoryStatus, cause error) {
	repository.resetInspection()
	repository.Status = status
	repository.LastError = cause
}
