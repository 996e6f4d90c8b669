package fleet_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitfo/internal/fleet"
)

const (
	stubRemoteNameConstant                = "origin"
	stubMainBranchConstant                = "main"
	stubDirectoryPermissionsConstant      = 0o755
	stubUnexpectedPathTemplateConstant    = "%w: unexpected repository %s"
	stubMethodCallTemplateConstant        = "%s %s"
	stubTrackingReferenceTemplateConstant = "%s/%s"
)

type stubRepositoryState struct {
	notRepository  bool
	currentBranch  string
	upstreams      map[string]string
	ahead          uint
	behind         uint
	dirty          bool
	probeError     error
	openError      error
	divergeError   error
	fetchError     error
	pullError      error
	checkoutErrors map[string]error
	actionDelay    time.Duration
}

// stubEngine serves canned answers per repository path and records every call.
type stubEngine struct {
	mutex          sync.Mutex
	repositories   map[string]*stubRepositoryState
	calls          []string
	activeByPath   map[string]int
	overlapsByPath map[string]int
}

func newStubEngine() *stubEngine {
	return &stubEngine{
		repositories:   make(map[string]*stubRepositoryState),
		activeByPath:   make(map[string]int),
		overlapsByPath: make(map[string]int),
	}
}

func (engine *stubEngine) register(repositoryPath string, state *stubRepositoryState) {
	engine.mutex.Lock()
	defer engine.mutex.Unlock()
	engine.repositories[repositoryPath] = state
}

func (engine *stubEngine) state(method string, repositoryPath string) (*stubRepositoryState, func(), error) {
	lockKey := filepath.Clean(repositoryPath)
	engine.mutex.Lock()
	engine.calls = append(engine.calls, fmt.Sprintf(stubMethodCallTemplateConstant, method, repositoryPath))
	engine.activeByPath[lockKey]++
	if engine.activeByPath[lockKey] > 1 {
		engine.overlapsByPath[lockKey]++
	}
	state, found := engine.repositories[repositoryPath]
	engine.mutex.Unlock()

	release := func() {
		engine.mutex.Lock()
		engine.activeByPath[lockKey]--
		engine.mutex.Unlock()
	}
	if !found {
		return nil, release, fmt.Errorf(stubUnexpectedPathTemplateConstant, fleet.ErrVcsOperationFailed, repositoryPath)
	}
	return state, release, nil
}

func (engine *stubEngine) recordedCalls() []string {
	engine.mutex.Lock()
	defer engine.mutex.Unlock()
	return append([]string(nil), engine.calls...)
}

func (engine *stubEngine) overlaps() int {
	engine.mutex.Lock()
	defer engine.mutex.Unlock()
	total := 0
	for _, count := range engine.overlapsByPath {
		total += count
	}
	return total
}

func (engine *stubEngine) Open(_ context.Context, repositoryPath string) error {
	state, release, stateError := engine.state("open", repositoryPath)
	defer release()
	if stateError != nil {
		return stateError
	}
	if state.notRepository {
		return fleet.ErrNotRepository
	}
	return state.openError
}

func (engine *stubEngine) CurrentBranch(_ context.Context, repositoryPath string) (string, error) {
	state, release, stateError := engine.state("branch", repositoryPath)
	defer release()
	if stateError != nil {
		return "", stateError
	}
	engine.mutex.Lock()
	defer engine.mutex.Unlock()
	return state.currentBranch, nil
}

func (engine *stubEngine) TrackingReference(_ context.Context, repositoryPath string, branch string) (fleet.TrackingReference, error) {
	state, release, stateError := engine.state("tracking", repositoryPath)
	defer release()
	if stateError != nil {
		return fleet.TrackingReference{}, stateError
	}
	upstreamBranch, found := state.upstreams[branch]
	if !found {
		return fleet.TrackingReference{}, fleet.ErrNoRemoteTracking
	}
	return fleet.TrackingReference{
		Remote:    stubRemoteNameConstant,
		Branch:    upstreamBranch,
		Reference: fmt.Sprintf(stubTrackingReferenceTemplateConstant, stubRemoteNameConstant, upstreamBranch),
	}, nil
}

func (engine *stubEngine) AheadBehind(_ context.Context, repositoryPath string, _ string, _ string) (uint, uint, error) {
	state, release, stateError := engine.state("divergence", repositoryPath)
	defer release()
	if stateError != nil {
		return 0, 0, stateError
	}
	if state.divergeError != nil {
		return 0, 0, state.divergeError
	}
	engine.mutex.Lock()
	defer engine.mutex.Unlock()
	return state.ahead, state.behind, nil
}

func (engine *stubEngine) IsDirty(_ context.Context, repositoryPath string) (bool, error) {
	state, release, stateError := engine.state("dirty", repositoryPath)
	defer release()
	if stateError != nil {
		return false, stateError
	}
	return state.dirty, nil
}

func (engine *stubEngine) ProbeRemote(_ context.Context, repositoryPath string, _ string) error {
	state, release, stateError := engine.state("probe", repositoryPath)
	defer release()
	if stateError != nil {
		return stateError
	}
	return state.probeError
}

func (engine *stubEngine) Fetch(executionContext context.Context, repositoryPath string, _ string) error {
	state, release, stateError := engine.state("fetch", repositoryPath)
	defer release()
	if stateError != nil {
		return stateError
	}
	if waitError := waitFor(executionContext, state.actionDelay); waitError != nil {
		return waitError
	}
	return state.fetchError
}

func (engine *stubEngine) Pull(executionContext context.Context, repositoryPath string) error {
	state, release, stateError := engine.state("pull", repositoryPath)
	defer release()
	if stateError != nil {
		return stateError
	}
	if waitError := waitFor(executionContext, state.actionDelay); waitError != nil {
		return waitError
	}
	if state.pullError != nil {
		return state.pullError
	}
	engine.mutex.Lock()
	state.behind = 0
	engine.mutex.Unlock()
	return nil
}

func (engine *stubEngine) Checkout(_ context.Context, repositoryPath string, branch string) error {
	state, release, stateError := engine.state("checkout "+branch, repositoryPath)
	defer release()
	if stateError != nil {
		return stateError
	}
	if checkoutError, found := state.checkoutErrors[branch]; found {
		return checkoutError
	}
	engine.mutex.Lock()
	state.currentBranch = branch
	engine.mutex.Unlock()
	return nil
}

func waitFor(executionContext context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}

func trackingMain() map[string]string {
	return map[string]string{stubMainBranchConstant: stubMainBranchConstant}
}

func createCheckout(testInstance *testing.T, rootPath string, segments ...string) string {
	testInstance.Helper()
	checkoutPath := filepath.Join(append([]string{rootPath}, segments...)...)
	require.NoError(testInstance, os.MkdirAll(checkoutPath, stubDirectoryPermissionsConstant))
	return checkoutPath
}
