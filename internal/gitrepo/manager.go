package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/temirov/gitfo/internal/execshell"
	"github.com/temirov/gitfo/internal/fleet"
)

const (
	gitRevParseSubcommandConstant     = "rev-parse"
	gitRevListSubcommandConstant      = "rev-list"
	gitStatusSubcommandConstant       = "status"
	gitFetchSubcommandConstant        = "fetch"
	gitPullSubcommandConstant         = "pull"
	gitSwitchSubcommandConstant       = "switch"
	gitForEachRefSubcommandConstant   = "for-each-ref"
	gitLSRemoteSubcommandConstant     = "ls-remote"
	gitWorkTreeFlagConstant           = "--is-inside-work-tree"
	gitShowTopLevelFlagConstant       = "--show-toplevel"
	gitAbbrevRefFlagConstant          = "--abbrev-ref"
	gitTrackingFormatFlagConstant     = "--format=%(refname) %(upstream) %(upstream:track)"
	gitLeftRightFlagConstant          = "--left-right"
	gitCountFlagConstant              = "--count"
	gitPorcelainFlagConstant          = "--porcelain"
	gitPruneFlagConstant              = "--prune"
	gitFastForwardOnlyFlagConstant    = "--ff-only"
	gitHeadsFlagConstant              = "--heads"
	gitHeadReferenceConstant          = "HEAD"
	gitGoneTrackMarkerConstant        = "[gone]"
	gitSymmetricDifferenceConstant    = "..."
	gitRemoteReferencePrefixConstant  = "refs/remotes/"
	gitLocalBranchPrefixConstant      = "refs/heads/"
	gitTrueOutputConstant             = "true"
	terminalPromptEnvironmentConstant = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledConstant    = "0"
	executorMissingMessageConstant    = "repository manager requires a git executor"
	nestedCheckoutTemplateConstant    = "%w: %s belongs to the checkout at %s"
	unexpectedOutputTemplateConstant  = "%w: unexpected output %q from git %s"
	localUpstreamTemplateConstant     = "%w: %s tracks local reference %s"
	branchMissingTemplateConstant     = "%w: no local branch %q"
	noUpstreamTemplateConstant        = "%w: %s has no upstream"
	goneUpstreamTemplateConstant      = "%w: upstream %s of %s no longer exists"
	classifiedFailureTemplateConstant = "%w: %w"
)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager implements fleet.VcsEngine with the git executable.
type RepositoryManager struct {
	executor GitExecutor
}

var errExecutorMissing = errors.New(executorMissingMessageConstant)

var _ fleet.VcsEngine = (*RepositoryManager)(nil)

// NewRepositoryManager constructs a manager backed by executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, errExecutorMissing
	}
	return &RepositoryManager{executor: executor}, nil
}

// Open confirms repositoryPath is the top level of a work tree.
// A directory nested inside another checkout is not treated as a repository of its own.
func (manager *RepositoryManager) Open(executionContext context.Context, repositoryPath string) error {
	output, runError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitWorkTreeFlagConstant, gitShowTopLevelFlagConstant)
	if runError != nil {
		return runError
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 || strings.TrimSpace(lines[0]) != gitTrueOutputConstant {
		return fmt.Errorf(unexpectedOutputTemplateConstant, fleet.ErrNotRepository, output, gitRevParseSubcommandConstant)
	}

	topLevel := canonicalPath(strings.TrimSpace(lines[1]))
	if topLevel != canonicalPath(repositoryPath) {
		return fmt.Errorf(nestedCheckoutTemplateConstant, fleet.ErrNotRepository, repositoryPath, topLevel)
	}
	return nil
}

// CurrentBranch returns the checked out branch, or an empty name for a detached HEAD.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	output, runError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if runError != nil {
		return "", runError
	}
	branch := strings.TrimSpace(output)
	if branch == gitHeadReferenceConstant {
		return "", nil
	}
	return branch, nil
}

// TrackingReference resolves the remote-tracking branch configured for branch.
// A missing branch, a branch without upstream, and an upstream deleted on the remote all wrap
// fleet.ErrNoRemoteTracking.
func (manager *RepositoryManager) TrackingReference(executionContext context.Context, repositoryPath string, branch string) (fleet.TrackingReference, error) {
	localReference := gitLocalBranchPrefixConstant + branch
	if len(branch) == 0 {
		return fleet.TrackingReference{}, fmt.Errorf(branchMissingTemplateConstant, fleet.ErrNoRemoteTracking, branch)
	}

	output, runError := manager.run(executionContext, repositoryPath, gitForEachRefSubcommandConstant, gitTrackingFormatFlagConstant, localReference)
	if runError != nil {
		return fleet.TrackingReference{}, runError
	}

	// for-each-ref also lists refs below localReference, so only the exact ref counts.
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != localReference {
			continue
		}
		if len(fields) < 2 {
			return fleet.TrackingReference{}, fmt.Errorf(noUpstreamTemplateConstant, fleet.ErrNoRemoteTracking, branch)
		}

		upstream := fields[1]
		if !strings.HasPrefix(upstream, gitRemoteReferencePrefixConstant) {
			return fleet.TrackingReference{}, fmt.Errorf(localUpstreamTemplateConstant, fleet.ErrNoRemoteTracking, branch, upstream)
		}
		if strings.Contains(strings.Join(fields[2:], " "), gitGoneTrackMarkerConstant) {
			return fleet.TrackingReference{}, fmt.Errorf(goneUpstreamTemplateConstant, fleet.ErrNoRemoteTracking, upstream, branch)
		}

		shortReference := strings.TrimPrefix(upstream, gitRemoteReferencePrefixConstant)
		remoteAndBranch := strings.SplitN(shortReference, "/", 2)
		if len(remoteAndBranch) != 2 {
			return fleet.TrackingReference{}, fmt.Errorf(unexpectedOutputTemplateConstant, fleet.ErrVcsOperationFailed, output, gitForEachRefSubcommandConstant)
		}
		return fleet.TrackingReference{Remote: remoteAndBranch[0], Branch: remoteAndBranch[1], Reference: shortReference}, nil
	}
	return fleet.TrackingReference{}, fmt.Errorf(branchMissingTemplateConstant, fleet.ErrNoRemoteTracking, branch)
}

// AheadBehind counts commits only in localReference and only in trackingReference.
func (manager *RepositoryManager) AheadBehind(executionContext context.Context, repositoryPath string, localReference string, trackingReference string) (uint, uint, error) {
	output, runError := manager.run(executionContext, repositoryPath, gitRevListSubcommandConstant, gitLeftRightFlagConstant, gitCountFlagConstant, localReference+gitSymmetricDifferenceConstant+trackingReference)
	if runError != nil {
		return 0, 0, runError
	}

	counts := strings.Fields(output)
	if len(counts) != 2 {
		return 0, 0, fmt.Errorf(unexpectedOutputTemplateConstant, fleet.ErrVcsOperationFailed, output, gitRevListSubcommandConstant)
	}
	ahead, aheadError := strconv.ParseUint(counts[0], 10, 0)
	behind, behindError := strconv.ParseUint(counts[1], 10, 0)
	if aheadError != nil || behindError != nil {
		return 0, 0, fmt.Errorf(unexpectedOutputTemplateConstant, fleet.ErrVcsOperationFailed, output, gitRevListSubcommandConstant)
	}
	return uint(ahead), uint(behind), nil
}

// IsDirty reports staged, unstaged, or untracked changes.
func (manager *RepositoryManager) IsDirty(executionContext context.Context, repositoryPath string) (bool, error) {
	output, runError := manager.run(executionContext, repositoryPath, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if runError != nil {
		return false, runError
	}
	return len(strings.TrimSpace(output)) > 0, nil
}

// ProbeRemote contacts remote so credential problems surface during inspection.
func (manager *RepositoryManager) ProbeRemote(executionContext context.Context, repositoryPath string, remote string) error {
	_, runError := manager.run(executionContext, repositoryPath, gitLSRemoteSubcommandConstant, gitHeadsFlagConstant, remote)
	return runError
}

// Fetch updates remote-tracking references of remote and prunes deleted branches.
func (manager *RepositoryManager) Fetch(executionContext context.Context, repositoryPath string, remote string) error {
	_, runError := manager.run(executionContext, repositoryPath, gitFetchSubcommandConstant, gitPruneFlagConstant, remote)
	return runError
}

// Pull fast-forwards the current branch and fails on divergence.
func (manager *RepositoryManager) Pull(executionContext context.Context, repositoryPath string) error {
	_, runError := manager.run(executionContext, repositoryPath, gitPullSubcommandConstant, gitFastForwardOnlyFlagConstant)
	return runError
}

// Checkout switches to branch, creating it from a matching remote branch when needed.
// git switch never treats branch as a path, so a name matching no branch fails instead of
// restoring files.
func (manager *RepositoryManager) Checkout(executionContext context.Context, repositoryPath string, branch string) error {
	_, runError := manager.run(executionContext, repositoryPath, gitSwitchSubcommandConstant, branch)
	return runError
}

func (manager *RepositoryManager) run(executionContext context.Context, repositoryPath string, arguments ...string) (string, error) {
	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: map[string]string{terminalPromptEnvironmentConstant: terminalPromptDisabledConstant},
	})
	if executionError != nil {
		return "", ClassifyError(executionError)
	}
	return result.StandardOutput, nil
}

func canonicalPath(path string) string {
	cleaned := filepath.Clean(path)
	if resolved, resolveError := filepath.EvalSymlinks(cleaned); resolveError == nil {
		return resolved
	}
	return cleaned
}

var (
	authenticationFailurePatterns = []string{
		"authentication failed",
		"could not read username",
		"could not read password",
		"terminal prompts disabled",
		"permission denied (publickey",
		"invalid username or password",
		"access denied",
		"the requested url returned error: 401",
		"the requested url returned error: 403",
	}
	missingTrackingPatterns = []string{
		"no upstream configured",
		"no upstream branch",
		"no such branch",
		"does not point to a branch",
		"there is no tracking information",
	}
	notRepositoryPatterns = []string{
		"not a git repository",
	}
)

// ClassifyError maps a git execution failure onto the fleet error taxonomy.
// The returned error also wraps the original so exit codes and causes remain inspectable.
func ClassifyError(executionError error) error {
	if executionError == nil {
		return nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		standardError := strings.ToLower(failedError.Result.StandardError)
		switch {
		case containsAny(standardError, notRepositoryPatterns):
			return fmt.Errorf(classifiedFailureTemplateConstant, fleet.ErrNotRepository, executionError)
		case containsAny(standardError, authenticationFailurePatterns):
			return fmt.Errorf(classifiedFailureTemplateConstant, fleet.ErrAuthenticationFailed, executionError)
		case containsAny(standardError, missingTrackingPatterns):
			return fmt.Errorf(classifiedFailureTemplateConstant, fleet.ErrNoRemoteTracking, executionError)
		}
	}
	return fmt.Errorf(classifiedFailureTemplateConstant, fleet.ErrVcsOperationFailed, executionError)
}

func containsAny(text string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}
