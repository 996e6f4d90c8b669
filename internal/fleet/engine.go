package fleet

import "context"

// TrackingReference names the remote branch a local branch compares against.
type TrackingReference struct {
	Remote    string
	Branch    string
	Reference string
}

// VcsEngine performs git operations on a checkout. Implementations wrap failures with
// ErrNotRepository, ErrAuthenticationFailed, ErrNoRemoteTracking, or ErrVcsOperationFailed.
type VcsEngine interface {
	Open(executionContext context.Context, repositoryPath string) error
	// CurrentBranch returns an empty name for a detached HEAD.
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	TrackingReference(executionContext context.Context, repositoryPath string, branch string) (TrackingReference, error)
	AheadBehind(executionContext context.Context, repositoryPath string, localReference string, trackingReference string) (uint, uint, error)
	IsDirty(executionContext context.Context, repositoryPath string) (bool, error)
	ProbeRemote(executionContext context.Context, repositoryPath string, remote string) error
	Fetch(executionContext context.Context, repositoryPath string, remote string) error
	Pull(executionContext context.Context, repositoryPath string) error
	Checkout(executionContext context.Context, repositoryPath string, branch string) error
}

// OriginDetails describes the origin remote recorded in a checkout.
type OriginDetails struct {
	Owner         string
	RemoteURL     string
	DefaultBranch string
}

// OriginReader reads origin metadata directly from repository storage.
type OriginReader interface {
	ReadOrigin(repositoryPath string) (OriginDetails, error)
}
