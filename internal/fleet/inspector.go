package fleet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"
)

const (
	headReferenceConstant              = "HEAD"
	defaultRemoteNameConstant          = "origin"
	directoryMissingTemplateConstant   = "%w: %s"
	notDirectoryTemplateConstant       = "%w: %s is not a directory"
	inspectionStepTemplateConstant     = "%s: %w"
	noTrackingTemplateConstant         = "%w: neither %q nor %q tracks a remote branch"
	noTrackingDetachedTemplateConstant = "%w: detached HEAD and %q tracks no remote branch"
	openStepConstant                   = "open repository"
	currentBranchStepConstant          = "read current branch"
	trackingStepConstant               = "resolve tracking branch"
	divergenceStepConstant             = "count commits"
	dirtyStepConstant                  = "read working tree status"
	probeFailureLogMessageConstant     = "Remote probe failed, continuing without it"
	inspectedLogMessageConstant        = "Repository inspected"
	logFieldRepositoryConstant         = "repository"
	logFieldStatusConstant             = "status"
	logFieldRemoteConstant             = "remote"
	logFieldBranchConstant             = "branch"
	logFieldAheadConstant              = "ahead"
	logFieldBehindConstant             = "behind"
	logFieldDirtyConstant              = "dirty"
)

// PathStatter reports filesystem metadata.
type PathStatter interface {
	Stat(path string) (fs.FileInfo, error)
}

// InspectorDependencies wires the collaborators of an Inspector.
type InspectorDependencies struct {
	Engine      VcsEngine
	FileSystem  PathStatter
	Logger      *zap.Logger
	ProbeRemote bool
	// DefaultRemote is probed when no tracking branch is configured.
	DefaultRemote string
}

// Inspector computes the status of a repository checkout.
type Inspector struct {
	engine        VcsEngine
	fileSystem    PathStatter
	logger        *zap.Logger
	probeRemote   bool
	defaultRemote string
}

var (
	errInspectorEngineMissing     = errors.New("inspector requires a VCS engine")
	errInspectorFileSystemMissing = errors.New("inspector requires a filesystem")
)

// NewInspector validates dependencies and constructs an Inspector.
func NewInspector(dependencies InspectorDependencies) (*Inspector, error) {
	if dependencies.Engine == nil {
		return nil, errInspectorEngineMissing
	}
	if dependencies.FileSystem == nil {
		return nil, errInspectorFileSystemMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultRemote := dependencies.DefaultRemote
	if len(defaultRemote) == 0 {
		defaultRemote = defaultRemoteNameConstant
	}
	return &Inspector{
		engine:        dependencies.Engine,
		fileSystem:    dependencies.FileSystem,
		logger:        logger,
		probeRemote:   dependencies.ProbeRemote,
		defaultRemote: defaultRemote,
	}, nil
}

// Inspect recomputes every inspection field of repository.
//
// A missing checkout, or one that is not a repository, is DirectoryMissing. A remote that rejects
// credentials is AuthenticationFailed. When neither the current branch nor the default branch
// tracks a remote branch, or any other git query fails, the repository is NoRemote and LastError
// records the cause. Otherwise it is Good and ahead/behind count HEAD against the tracking branch.
func (inspector *Inspector) Inspect(executionContext context.Context, repository *Repository) {
	repository.resetInspection()
	inspector.inspect(executionContext, repository)

	fields := []zap.Field{
		zap.String(logFieldRepositoryConstant, repository.Name),
		zap.String(logFieldStatusConstant, repository.Status.String()),
	}
	if repository.Status == RepositoryStatusGood {
		fields = append(fields,
			zap.String(logFieldBranchConstant, repository.CurrentBranch),
			zap.Uint(logFieldAheadConstant, repository.Ahead),
			zap.Uint(logFieldBehindConstant, repository.Behind),
			zap.Bool(logFieldDirtyConstant, repository.IsDirty),
		)
	} else if repository.LastError != nil {
		fields = append(fields, zap.Error(repository.LastError))
	}
	inspector.logger.Debug(inspectedLogMessageConstant, fields...)
}

func (inspector *Inspector) inspect(executionContext context.Context, repository *Repository) {
	pathInfo, statError := inspector.fileSystem.Stat(repository.Path)
	if statError != nil {
		repository.markFailed(RepositoryStatusDirectoryMissing, fmt.Errorf(directoryMissingTemplateConstant, ErrDirectoryMissing, repository.Path))
		return
	}
	if !pathInfo.IsDir() {
		repository.markFailed(RepositoryStatusDirectoryMissing, fmt.Errorf(notDirectoryTemplateConstant, ErrDirectoryMissing, repository.Path))
		return
	}

	if openError := inspector.engine.Open(executionContext, repository.Path); openError != nil {
		if errors.Is(openError, ErrNotRepository) {
			repository.markFailed(RepositoryStatusDirectoryMissing, fmt.Errorf(directoryMissingTemplateConstant, ErrDirectoryMissing, openError))
			return
		}
		inspector.recordFailure(repository, openStepConstant, openError)
		return
	}

	currentBranch, branchError := inspector.engine.CurrentBranch(executionContext, repository.Path)
	if branchError != nil {
		inspector.recordFailure(repository, currentBranchStepConstant, branchError)
		return
	}

	tracking, trackingFound, trackingError := inspector.resolveTracking(executionContext, repository, currentBranch)
	if trackingError != nil {
		inspector.recordFailure(repository, trackingStepConstant, trackingError)
		return
	}

	if inspector.probeRemote {
		probedRemote := inspector.defaultRemote
		if trackingFound && len(tracking.Remote) > 0 {
			probedRemote = tracking.Remote
		}
		probeError := inspector.engine.ProbeRemote(executionContext, repository.Path, probedRemote)
		if probeError != nil {
			if errors.Is(probeError, ErrAuthenticationFailed) {
				repository.markFailed(RepositoryStatusAuthenticationFailed, probeError)
				return
			}
			if contextError := executionContext.Err(); contextError != nil {
				inspector.recordFailure(repository, trackingStepConstant, probeError)
				return
			}
			inspector.logger.Warn(probeFailureLogMessageConstant,
				zap.String(logFieldRepositoryConstant, repository.Name),
				zap.String(logFieldRemoteConstant, probedRemote),
				zap.Error(probeError),
			)
		}
	}

	if !trackingFound {
		repository.markFailed(RepositoryStatusNoRemote, noTrackingError(currentBranch, repository.DefaultBranch))
		return
	}

	ahead, behind, divergenceError := inspector.engine.AheadBehind(executionContext, repository.Path, headReferenceConstant, tracking.Reference)
	if divergenceError != nil {
		inspector.recordFailure(repository, divergenceStepConstant, divergenceError)
		return
	}

	dirty, dirtyError := inspector.engine.IsDirty(executionContext, repository.Path)
	if dirtyError != nil {
		inspector.recordFailure(repository, dirtyStepConstant, dirtyError)
		return
	}

	repository.Status = RepositoryStatusGood
	repository.CurrentBranch = currentBranch
	if len(currentBranch) == 0 {
		repository.CurrentBranch = headReferenceConstant
	}
	repository.TrackingRemote = tracking.Remote
	repository.TrackingBranch = tracking.Reference
	repository.Ahead = ahead
	repository.Behind = behind
	repository.IsDirty = dirty
}

// resolveTracking prefers the current branch's upstream and falls back to the default branch's upstream.
func (inspector *Inspector) resolveTracking(executionContext context.Context, repository *Repository, currentBranch string) (TrackingReference, bool, error) {
	candidates := make([]string, 0, 2)
	if len(currentBranch) > 0 {
		candidates = append(candidates, currentBranch)
	}
	if len(repository.DefaultBranch) > 0 && repository.DefaultBranch != currentBranch {
		candidates = append(candidates, repository.DefaultBranch)
	}

	for _, candidate := range candidates {
		tracking, trackingError := inspector.engine.TrackingReference(executionContext, repository.Path, candidate)
		if trackingError == nil {
			return tracking, true, nil
		}
		if !errors.Is(trackingError, ErrNoRemoteTracking) {
			return TrackingReference{}, false, trackingError
		}
	}
	return TrackingReference{}, false, nil
}

func (inspector *Inspector) recordFailure(repository *Repository, step string, cause error) {
	if errors.Is(cause, ErrAuthenticationFailed) {
		repository.markFailed(RepositoryStatusAuthenticationFailed, fmt.Errorf(inspectionStepTemplateConstant, step, cause))
		return
	}
	repository.markFailed(RepositoryStatusNoRemote, fmt.Errorf(inspectionStepTemplateConstant, step, cause))
}

func noTrackingError(currentBranch string, defaultBranch string) error {
	if len(currentBranch) == 0 {
		return fmt.Errorf(noTrackingDetachedTemplateConstant, ErrNoRemoteTracking, defaultBranch)
	}
	return fmt.Errorf(noTrackingTemplateConstant, ErrNoRemoteTracking, currentBranch, defaultBranch)
}
