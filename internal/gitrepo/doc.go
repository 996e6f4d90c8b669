// Package gitrepo implements the fleet VCS engine on top of the git executable.
//
// RepositoryManager runs git through execshell and maps its failures onto the
// fleet error taxonomy. OriginReader reads origin metadata with go-git so that
// generate can run without spawning git, and ParseRemoteURL extracts the owner
// from SSH and HTTPS remote URLs.
package gitrepo
