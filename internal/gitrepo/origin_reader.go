package gitrepo

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/temirov/gitfo/internal/fleet"
)

const (
	// DefaultRemoteNameConstant names the remote consulted when none is configured.
	DefaultRemoteNameConstant = "origin"

	openRepositoryTemplateConstant   = "%w: unable to open %s: %w"
	readRemoteTemplateConstant       = "unable to read remote %s in %s: %w"
	remoteWithoutURLTemplateConstant = "remote %s in %s has no URL"
	parseOriginTemplateConstant      = "unable to derive owner for %s: %w"
)

// GoGitOriginReader reads origin metadata from repository storage without spawning git.
type GoGitOriginReader struct {
	remoteName string
}

var _ fleet.OriginReader = (*GoGitOriginReader)(nil)

// NewOriginReader constructs a reader for remoteName, defaulting to origin.
func NewOriginReader(remoteName string) *GoGitOriginReader {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		trimmedRemoteName = DefaultRemoteNameConstant
	}
	return &GoGitOriginReader{remoteName: trimmedRemoteName}
}

// ReadOrigin returns the owner parsed from the remote URL and, when recorded,
// the branch the remote HEAD points at. DefaultBranch is empty when the
// remote HEAD was never fetched.
func (reader *GoGitOriginReader) ReadOrigin(repositoryPath string) (fleet.OriginDetails, error) {
	repository, openError := git.PlainOpenWithOptions(repositoryPath, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if openError != nil {
		return fleet.OriginDetails{}, fmt.Errorf(openRepositoryTemplateConstant, fleet.ErrNotRepository, repositoryPath, openError)
	}

	remote, remoteError := repository.Remote(reader.remoteName)
	if remoteError != nil {
		return fleet.OriginDetails{}, fmt.Errorf(readRemoteTemplateConstant, reader.remoteName, repositoryPath, remoteError)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return fleet.OriginDetails{}, fmt.Errorf(remoteWithoutURLTemplateConstant, reader.remoteName, repositoryPath)
	}

	parsed, parseError := ParseRemoteURL(urls[0])
	if parseError != nil {
		return fleet.OriginDetails{}, fmt.Errorf(parseOriginTemplateConstant, repositoryPath, parseError)
	}

	return fleet.OriginDetails{
		Owner:         parsed.Owner,
		RemoteURL:     urls[0],
		DefaultBranch: reader.remoteHeadBranch(repository),
	}, nil
}

func (reader *GoGitOriginReader) remoteHeadBranch(repository *git.Repository) string {
	reference, referenceError := repository.Reference(plumbing.NewRemoteHEADReferenceName(reader.remoteName), false)
	if referenceError != nil || reference.Type() != plumbing.SymbolicReference {
		return ""
	}
	remotePrefix := plumbing.NewRemoteReferenceName(reader.remoteName, "").String()
	return strings.TrimPrefix(reference.Target().String(), remotePrefix)
}
