package fleet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ActionName identifies a fleet action.
type ActionName string

// Supported actions.
const (
	ActionFetch    ActionName = "fetch"
	ActionPull     ActionName = "pull"
	ActionCheckout ActionName = "checkout"
	ActionSync     ActionName = "sync"
)

const (
	defaultConcurrencyConstant            = 4
	actionFailureTemplateConstant         = "%s %s: %w"
	repositoryNotReadyTemplateConstant    = "%s is %s: %w"
	unsupportedActionTemplateConstant     = "%w: unsupported action %q"
	checkoutBranchMissingTemplateConstant = "%w: no branch requested and no default branch configured"
	actionSucceededLogMessageConstant     = "Repository action succeeded"
	actionFailedLogMessageConstant        = "Repository action failed"
	profileCompletedLogMessageConstant    = "Profile completed"
	logFieldActionConstant                = "action"
	logFieldProfileConstant               = "profile"
	logFieldAttemptedConstant             = "attempted"
	logFieldSucceededConstant             = "succeeded"
	logFieldFailedConstant                = "failed"
)

// Action describes the operation applied to every repository of a fleet.
type Action struct {
	Name ActionName
	// Branch is the checkout target; empty selects each repository's default branch.
	Branch string
}

// Outcome records the result of one repository attempt. Repository reflects post-action inspection.
type Outcome struct {
	Repository *Repository
	Action     ActionName
	Succeeded  bool
	Err        error
}

// Aggregate counts attempts across a fleet.
type Aggregate struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Add sums two aggregates.
func (aggregate Aggregate) Add(other Aggregate) Aggregate {
	return Aggregate{
		Attempted: aggregate.Attempted + other.Attempted,
		Succeeded: aggregate.Succeeded + other.Succeeded,
		Failed:    aggregate.Failed + other.Failed,
	}
}

// ExitCode is zero only when every attempt succeeded.
func (aggregate Aggregate) ExitCode() int {
	if aggregate.Failed > 0 {
		return ExitCodeRepositoryFailures
	}
	return ExitCodeSuccess
}

// ProfileResult holds ordered outcomes for one profile.
type ProfileResult struct {
	Profile   string
	Outcomes  []Outcome
	Aggregate Aggregate
}

// Repositories returns the repositories of the outcomes in profile order.
func (result ProfileResult) Repositories() []*Repository {
	repositories := make([]*Repository, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		repositories = append(repositories, outcome.Repository)
	}
	return repositories
}

// RunnerDependencies wires the collaborators of a Runner.
type RunnerDependencies struct {
	Engine    VcsEngine
	Inspector *Inspector
	Logger    *zap.Logger
	// Concurrency bounds parallel repository operations; values below one select the default.
	Concurrency int
	// OperationTimeout bounds each inspection and action; zero disables it.
	OperationTimeout time.Duration
	// DefaultRemote is fetched when a repository has no tracking remote.
	DefaultRemote string
}

// Runner applies actions across repositories. Repositories run in parallel, but a path is never
// touched by two operations at once and outcomes keep the input order.
type Runner struct {
	engine           VcsEngine
	inspector        *Inspector
	logger           *zap.Logger
	concurrency      int
	operationTimeout time.Duration
	defaultRemote    string
	pathLocks        *pathLockSet
}

var (
	errRunnerEngineMissing    = errors.New("runner requires a VCS engine")
	errRunnerInspectorMissing = errors.New("runner requires an inspector")
)

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(dependencies RunnerDependencies) (*Runner, error) {
	if dependencies.Engine == nil {
		return nil, errRunnerEngineMissing
	}
	if dependencies.Inspector == nil {
		return nil, errRunnerInspectorMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := dependencies.Concurrency
	if concurrency < 1 {
		concurrency = defaultConcurrencyConstant
	}
	defaultRemote := dependencies.DefaultRemote
	if len(defaultRemote) == 0 {
		defaultRemote = defaultRemoteNameConstant
	}
	return &Runner{
		engine:           dependencies.Engine,
		inspector:        dependencies.Inspector,
		logger:           logger,
		concurrency:      concurrency,
		operationTimeout: dependencies.OperationTimeout,
		defaultRemote:    defaultRemote,
		pathLocks:        newPathLockSet(),
	}, nil
}

// InspectAll inspects every repository without running an action.
func (runner *Runner) InspectAll(executionContext context.Context, repositories []*Repository) {
	runner.forEach(repositories, func(repository *Repository) {
		runner.inspectWithTimeout(executionContext, repository)
	})
}

// Run attempts action on every repository, regardless of failures elsewhere in the fleet.
func (runner *Runner) Run(executionContext context.Context, profileName string, action Action, repositories []*Repository) ProfileResult {
	outcomes := make([]Outcome, len(repositories))
	runner.forEachIndexed(repositories, func(repositoryIndex int, repository *Repository) {
		outcomes[repositoryIndex] = runner.attempt(executionContext, action, repository)
	})

	result := ProfileResult{Profile: profileName, Outcomes: outcomes}
	for _, outcome := range outcomes {
		result.Aggregate.Attempted++
		if outcome.Succeeded {
			result.Aggregate.Succeeded++
		} else {
			result.Aggregate.Failed++
		}
	}

	runner.logger.Info(profileCompletedLogMessageConstant,
		zap.String(logFieldProfileConstant, profileName),
		zap.String(logFieldActionConstant, string(action.Name)),
		zap.Int(logFieldAttemptedConstant, result.Aggregate.Attempted),
		zap.Int(logFieldSucceededConstant, result.Aggregate.Succeeded),
		zap.Int(logFieldFailedConstant, result.Aggregate.Failed),
	)
	return result
}

// RunAllProfiles runs action on each profile independently and sums the aggregates.
// onProfileComplete, when set, receives each result in profile order as soon as it is available.
func (runner *Runner) RunAllProfiles(executionContext context.Context, profiles []MaterializedProfile, action Action, onProfileComplete func(ProfileResult)) ([]ProfileResult, Aggregate) {
	results := make([]ProfileResult, 0, len(profiles))
	total := Aggregate{}
	for _, profile := range profiles {
		result := runner.Run(executionContext, profile.Name, action, profile.Repositories)
		results = append(results, result)
		total = total.Add(result.Aggregate)
		if onProfileComplete != nil {
			onProfileComplete(result)
		}
	}
	return results, total
}

func (runner *Runner) attempt(executionContext context.Context, action Action, repository *Repository) Outcome {
	outcome := Outcome{Repository: repository, Action: action.Name}

	runner.inspectWithTimeout(executionContext, repository)
	if repository.Status != RepositoryStatusGood {
		outcome.Err = fmt.Errorf(repositoryNotReadyTemplateConstant, repository.Name, repository.Status, repository.StatusError())
	} else {
		actionContext, cancel := runner.operationContext(executionContext)
		actionError := runner.perform(actionContext, action, repository)
		cancel()
		if actionError != nil {
			outcome.Err = fmt.Errorf(actionFailureTemplateConstant, action.Name, repository.Name, actionError)
		} else {
			outcome.Succeeded = true
		}
		runner.inspectWithTimeout(executionContext, repository)
	}

	fields := []zap.Field{
		zap.String(logFieldRepositoryConstant, repository.Name),
		zap.String(logFieldActionConstant, string(action.Name)),
		zap.String(logFieldStatusConstant, repository.Status.String()),
	}
	if outcome.Succeeded {
		runner.logger.Info(actionSucceededLogMessageConstant, fields...)
	} else {
		runner.logger.Warn(actionFailedLogMessageConstant, append(fields, zap.Error(outcome.Err))...)
	}
	return outcome
}

func (runner *Runner) perform(executionContext context.Context, action Action, repository *Repository) error {
	switch action.Name {
	case ActionFetch:
		return runner.fetch(executionContext, repository)
	case ActionPull:
		return runner.engine.Pull(executionContext, repository.Path)
	case ActionCheckout:
		return runner.checkout(executionContext, repository, action.Branch)
	case ActionSync:
		return runner.sync(executionContext, repository)
	default:
		return fmt.Errorf(unsupportedActionTemplateConstant, ErrVcsOperationFailed, action.Name)
	}
}

func (runner *Runner) fetch(executionContext context.Context, repository *Repository) error {
	remote := repository.TrackingRemote
	if len(remote) == 0 {
		remote = runner.defaultRemote
	}
	return runner.engine.Fetch(executionContext, repository.Path, remote)
}

func (runner *Runner) checkout(executionContext context.Context, repository *Repository, requestedBranch string) error {
	branch := requestedBranch
	if len(branch) == 0 {
		branch = repository.DefaultBranch
	}
	if len(branch) == 0 {
		return fmt.Errorf(checkoutBranchMissingTemplateConstant, ErrVcsOperationFailed)
	}
	return runner.engine.Checkout(executionContext, repository.Path, branch)
}

// sync fetches, checks out the default branch (the current branch when none is configured), then pulls.
func (runner *Runner) sync(executionContext context.Context, repository *Repository) error {
	if fetchError := runner.fetch(executionContext, repository); fetchError != nil {
		return fetchError
	}
	branch := repository.DefaultBranch
	if len(branch) == 0 {
		branch = repository.CurrentBranch
	}
	if checkoutError := runner.checkout(executionContext, repository, branch); checkoutError != nil {
		return checkoutError
	}
	return runner.engine.Pull(executionContext, repository.Path)
}

func (runner *Runner) inspectWithTimeout(executionContext context.Context, repository *Repository) {
	inspectionContext, cancel := runner.operationContext(executionContext)
	defer cancel()
	runner.inspector.Inspect(inspectionContext, repository)
}

func (runner *Runner) operationContext(executionContext context.Context) (context.Context, context.CancelFunc) {
	if runner.operationTimeout <= 0 {
		return context.WithCancel(executionContext)
	}
	return context.WithTimeout(executionContext, runner.operationTimeout)
}

func (runner *Runner) forEach(repositories []*Repository, operation func(*Repository)) {
	runner.forEachIndexed(repositories, func(_ int, repository *Repository) {
		operation(repository)
	})
}

func (runner *Runner) forEachIndexed(repositories []*Repository, operation func(int, *Repository)) {
	var group errgroup.Group
	group.SetLimit(runner.concurrency)
	for repositoryIndex, repository := range repositories {
		group.Go(func() error {
			unlock := runner.pathLocks.lock(repository.Path)
			defer unlock()
			operation(repositoryIndex, repository)
			return nil
		})
	}
	_ = group.Wait()
}

type pathLockSet struct {
	guard sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLockSet() *pathLockSet {
	return &pathLockSet{locks: make(map[string]*sync.Mutex)}
}

func (lockSet *pathLockSet) lock(repositoryPath string) func() {
	key := filepath.Clean(repositoryPath)
	lockSet.guard.Lock()
	pathLock, exists := lockSet.locks[key]
	if !exists {
		pathLock = &sync.Mutex{}
		lockSet.locks[key] = pathLock
	}
	lockSet.guard.Unlock()

	pathLock.Lock()
	return pathLock.Unlock
}
