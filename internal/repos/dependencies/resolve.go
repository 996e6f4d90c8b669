package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/gitfo/internal/execshell"
	"github.com/temirov/gitfo/internal/fleet"
	"github.com/temirov/gitfo/internal/gitrepo"
	"github.com/temirov/gitfo/internal/repos/discovery"
	"github.com/temirov/gitfo/internal/repos/filesystem"
)

// FileSystem combines the filesystem surfaces used by the config store and the candidate scan.
type FileSystem interface {
	fleet.StoreFileSystem
	discovery.DirectoryReader
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing FileSystem) FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveCandidateDiscoverer returns the provided discoverer or a filesystem-backed default.
func ResolveCandidateDiscoverer(existing fleet.CandidateDiscoverer, reader discovery.DirectoryReader) fleet.CandidateDiscoverer {
	if existing != nil {
		return existing
	}
	return discovery.NewFleetLayoutDiscoverer(reader)
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
// observer may be nil.
func ResolveGitExecutor(existing gitrepo.GitExecutor, logger *zap.Logger, observer execshell.CommandEventObserver) (gitrepo.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutorWithObserver(logger, commandRunner, observer)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveVcsEngine returns the provided engine or constructs a git-backed one from the executor.
func ResolveVcsEngine(existing fleet.VcsEngine, executor gitrepo.GitExecutor) (fleet.VcsEngine, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}

// ResolveOriginReader returns the provided reader or a go-git reader for remoteName.
func ResolveOriginReader(existing fleet.OriginReader, remoteName string) fleet.OriginReader {
	if existing != nil {
		return existing
	}
	return gitrepo.NewOriginReader(remoteName)
}
