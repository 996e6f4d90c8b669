package discovery

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
)

const gitMetadataEntryNameConstant = ".git"

// DirectoryReader lists and inspects filesystem entries.
type DirectoryReader interface {
	ReadDir(path string) ([]fs.DirEntry, error)
	Stat(path string) (fs.FileInfo, error)
}

// Candidate describes one directory found two levels below the control root.
type Candidate struct {
	OwnerDirectory      string
	RepositoryDirectory string
	Path                string
	IsRepository        bool
}

// OwnerGroup collects the candidates found in one owner directory.
type OwnerGroup struct {
	OwnerDirectory string
	Candidates     []Candidate
}

// FleetLayoutDiscoverer scans the root/owner/repository layout used by fleet control directories.
type FleetLayoutDiscoverer struct {
	directoryReader DirectoryReader
}

// NewFleetLayoutDiscoverer constructs a discoverer backed by the provided directory reader.
func NewFleetLayoutDiscoverer(directoryReader DirectoryReader) *FleetLayoutDiscoverer {
	return &FleetLayoutDiscoverer{directoryReader: directoryReader}
}

// DiscoverCandidates lists owner directories under rootPath and their child directories, both sorted by name.
// A candidate is a repository when it holds a .git entry, either a directory or a worktree file.
func (discoverer *FleetLayoutDiscoverer) DiscoverCandidates(rootPath string) ([]OwnerGroup, error) {
	ownerEntries, ownerReadError := discoverer.directoryReader.ReadDir(rootPath)
	if ownerReadError != nil {
		return nil, ownerReadError
	}

	ownerNames := directoryNames(ownerEntries)
	groups := make([]OwnerGroup, 0, len(ownerNames))
	for _, ownerName := range ownerNames {
		ownerPath := filepath.Join(rootPath, ownerName)
		candidateEntries, candidateReadError := discoverer.directoryReader.ReadDir(ownerPath)
		if candidateReadError != nil {
			if errors.Is(candidateReadError, fs.ErrPermission) {
				continue
			}
			return nil, candidateReadError
		}

		group := OwnerGroup{OwnerDirectory: ownerName}
		for _, candidateName := range directoryNames(candidateEntries) {
			candidatePath := filepath.Join(ownerPath, candidateName)
			_, metadataError := discoverer.directoryReader.Stat(filepath.Join(candidatePath, gitMetadataEntryNameConstant))
			group.Candidates = append(group.Candidates, Candidate{
				OwnerDirectory:      ownerName,
				RepositoryDirectory: candidateName,
				Path:                candidatePath,
				IsRepository:        metadataError == nil,
			})
		}
		groups = append(groups, group)
	}

	return groups, nil
}

func directoryNames(entries []fs.DirEntry) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == gitMetadataEntryNameConstant {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}
