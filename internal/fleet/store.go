package fleet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitfo/internal/repos/discovery"
)

// ConfigFileNameConstant is the fleet file stored at the control root.
const ConfigFileNameConstant = ".gitfo"

const (
	// GeneratedProfileNameConstant names the single profile written by Generate.
	GeneratedProfileNameConstant  = "default"
	// FallbackDefaultBranchConstant is recorded when the remote HEAD cannot be read.
	FallbackDefaultBranchConstant = "main"

	configFilePermissionsConstant           = 0o644
	controlDirectoryMissingTemplateConstant = "%w: control directory %s does not exist"
	controlPathNotDirectoryTemplateConstant = "%w: %s is not a directory"
	configFileMissingTemplateConstant       = "%w: no %s file in %s"
	configFileUnreadableTemplateConstant    = "%w: unable to read %s: %v"
	configFileInvalidTemplateConstant       = "%w: %s: %v"
	generateConflictTemplateConstant        = "%w: %s"
	generateScanTemplateConstant            = "unable to scan %s: %w"
	generateEncodeTemplateConstant          = "unable to encode generated configuration: %w"
	generateWriteTemplateConstant           = "unable to write %s: %w"
	generatingLogMessageConstant            = "Generating fleet configuration"
	ownerLogMessageConstant                 = "Scanning owner directory"
	skippingLogMessageConstant              = "Skipping directory without .git"
	addingLogMessageConstant                = "Adding repository"
	originFallbackLogMessageConstant        = "Origin unreadable, using directory name as owner"
	generatedLogMessageConstant             = "Fleet configuration written"
	logFieldRootConstant                    = "root"
	logFieldOwnerConstant                   = "owner"
	logFieldDirectoryConstant               = "directory"
	logFieldDefaultBranchConstant           = "default_branch"
	logFieldRepositoriesConstant            = "repositories"
	logFieldPathConstant                    = "path"
)

// StoreFileSystem is the filesystem surface used by ConfigStore.
type StoreFileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	CreateExclusive(path string, data []byte, permissions fs.FileMode) error
}

// CandidateDiscoverer lists owner and repository directories under a control root.
type CandidateDiscoverer interface {
	DiscoverCandidates(rootPath string) ([]discovery.OwnerGroup, error)
}

// StoreDependencies wires the collaborators of a ConfigStore.
type StoreDependencies struct {
	FileSystem   StoreFileSystem
	Discoverer   CandidateDiscoverer
	OriginReader OriginReader
	Logger       *zap.Logger
}

// ConfigStore loads and generates the .gitfo file of a control root.
type ConfigStore struct {
	fileSystem   StoreFileSystem
	discoverer   CandidateDiscoverer
	originReader OriginReader
	logger       *zap.Logger
}

var (
	errStoreFileSystemMissing = errors.New("config store requires a filesystem")
	errStoreDiscovererMissing = errors.New("config store requires a directory discoverer")
	errStoreOriginMissing     = errors.New("config store requires an origin reader")
)

// NewConfigStore validates dependencies and constructs a ConfigStore.
func NewConfigStore(dependencies StoreDependencies) (*ConfigStore, error) {
	if dependencies.FileSystem == nil {
		return nil, errStoreFileSystemMissing
	}
	if dependencies.Discoverer == nil {
		return nil, errStoreDiscovererMissing
	}
	if dependencies.OriginReader == nil {
		return nil, errStoreOriginMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigStore{
		fileSystem:   dependencies.FileSystem,
		discoverer:   dependencies.Discoverer,
		originReader: dependencies.OriginReader,
		logger:       logger,
	}, nil
}

// ConfigPath returns the location of the fleet file for rootPath.
func ConfigPath(rootPath string) string {
	return filepath.Join(rootPath, ConfigFileNameConstant)
}

// Load reads the fleet file of rootPath.
func (store *ConfigStore) Load(rootPath string) (Configuration, error) {
	if directoryError := store.requireDirectory(rootPath); directoryError != nil {
		return Configuration{}, directoryError
	}

	configPath := ConfigPath(rootPath)
	content, readError := store.fileSystem.ReadFile(configPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return Configuration{}, fmt.Errorf(configFileMissingTemplateConstant, ErrConfigNotFound, ConfigFileNameConstant, rootPath)
		}
		return Configuration{}, fmt.Errorf(configFileUnreadableTemplateConstant, ErrConfigParse, configPath, readError)
	}

	configuration, decodeError := DecodeConfiguration(content)
	if decodeError != nil {
		return Configuration{}, fmt.Errorf(configFileInvalidTemplateConstant, ErrConfigParse, configPath, decodeError)
	}
	return configuration, nil
}

// Generate scans rootPath/<owner>/<repository> for checkouts and writes a single "default" profile.
// An existing fleet file is never overwritten.
func (store *ConfigStore) Generate(executionContext context.Context, rootPath string) (Configuration, error) {
	if directoryError := store.requireDirectory(rootPath); directoryError != nil {
		return Configuration{}, directoryError
	}

	configPath := ConfigPath(rootPath)
	if _, statError := store.fileSystem.Stat(configPath); statError == nil {
		return Configuration{}, fmt.Errorf(generateConflictTemplateConstant, ErrGenerateConflict, configPath)
	}

	store.logger.Info(generatingLogMessageConstant, zap.String(logFieldRootConstant, rootPath))

	ownerGroups, discoveryError := store.discoverer.DiscoverCandidates(rootPath)
	if discoveryError != nil {
		return Configuration{}, fmt.Errorf(generateScanTemplateConstant, rootPath, discoveryError)
	}

	repositories := make([]RepositoryInfo, 0)
	for _, group := range ownerGroups {
		store.logger.Info(ownerLogMessageConstant, zap.String(logFieldDirectoryConstant, group.OwnerDirectory))
		for _, candidate := range group.Candidates {
			if contextError := executionContext.Err(); contextError != nil {
				return Configuration{}, contextError
			}
			if !candidate.IsRepository {
				store.logger.Info(skippingLogMessageConstant, zap.String(logFieldDirectoryConstant, candidate.RepositoryDirectory))
				continue
			}
			repositories = append(repositories, store.describeCandidate(candidate))
		}
	}

	configuration := Configuration{Profiles: []Profile{{Name: GeneratedProfileNameConstant, Repositories: repositories}}}
	encoded, encodeError := EncodeConfiguration(configuration)
	if encodeError != nil {
		return Configuration{}, fmt.Errorf(generateEncodeTemplateConstant, encodeError)
	}

	if writeError := store.fileSystem.CreateExclusive(configPath, encoded, configFilePermissionsConstant); writeError != nil {
		if errors.Is(writeError, fs.ErrExist) {
			return Configuration{}, fmt.Errorf(generateConflictTemplateConstant, ErrGenerateConflict, configPath)
		}
		return Configuration{}, fmt.Errorf(generateWriteTemplateConstant, configPath, writeError)
	}

	store.logger.Info(generatedLogMessageConstant,
		zap.String(logFieldPathConstant, configPath),
		zap.Int(logFieldRepositoriesConstant, len(repositories)),
	)
	return configuration, nil
}

func (store *ConfigStore) describeCandidate(candidate discovery.Candidate) RepositoryInfo {
	info := RepositoryInfo{
		Owner:         candidate.OwnerDirectory,
		RepoName:      candidate.RepositoryDirectory,
		LocalFolder:   candidate.OwnerDirectory,
		DefaultBranch: FallbackDefaultBranchConstant,
	}

	origin, originError := store.originReader.ReadOrigin(candidate.Path)
	if originError != nil || len(strings.TrimSpace(origin.Owner)) == 0 {
		fields := []zap.Field{zap.String(logFieldPathConstant, candidate.Path)}
		if originError != nil {
			fields = append(fields, zap.Error(originError))
		}
		store.logger.Warn(originFallbackLogMessageConstant, fields...)
	} else {
		info.Owner = origin.Owner
	}
	if originError == nil && len(strings.TrimSpace(origin.DefaultBranch)) > 0 {
		info.DefaultBranch = origin.DefaultBranch
	}

	store.logger.Info(addingLogMessageConstant,
		zap.String(logFieldDirectoryConstant, candidate.RepositoryDirectory),
		zap.String(logFieldOwnerConstant, info.Owner),
		zap.String(logFieldDefaultBranchConstant, info.DefaultBranch),
	)
	return info
}

func (store *ConfigStore) requireDirectory(rootPath string) error {
	rootInfo, statError := store.fileSystem.Stat(rootPath)
	if statError != nil {
		return fmt.Errorf(controlDirectoryMissingTemplateConstant, ErrConfigNotFound, rootPath)
	}
	if !rootInfo.IsDir() {
		return fmt.Errorf(controlPathNotDirectoryTemplateConstant, ErrConfigNotFound, rootPath)
	}
	return nil
}
