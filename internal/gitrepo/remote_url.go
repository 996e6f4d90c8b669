package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	gitProtocolPrefixConstant           = "git://"
	sshUserDelimiterConstant            = "@"
	scpPathDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value is required"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
	RemoteProtocolGit   RemoteProtocol = RemoteProtocol("git")
)

// RemoteURL represents a structured git remote URL.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

var urlProtocolPrefixes = []struct {
	prefix   string
	protocol RemoteProtocol
}{
	{prefix: sshProtocolPrefixConstant, protocol: RemoteProtocolSSH},
	{prefix: httpsProtocolPrefixConstant, protocol: RemoteProtocolHTTPS},
	{prefix: httpProtocolPrefixConstant, protocol: RemoteProtocolHTTP},
	{prefix: gitProtocolPrefixConstant, protocol: RemoteProtocolGit},
}

// ParseRemoteURL converts a textual remote URL into a structured representation.
// URL forms (ssh://, https://, http://, git://) and scp-like forms (git@host:owner/repo.git) are accepted.
// The owner is the path segment preceding the repository name, so nested groups keep only their last segment.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	for _, candidate := range urlProtocolPrefixes {
		if strings.HasPrefix(strings.ToLower(trimmedRemote), candidate.prefix) {
			return parseURLRemote(remote, trimmedRemote[len(candidate.prefix):], candidate.protocol)
		}
	}

	if strings.Contains(trimmedRemote, scpPathDelimiterConstant) && !strings.Contains(strings.SplitN(trimmedRemote, scpPathDelimiterConstant, 2)[0], pathSeparatorConstant) {
		return parseScpRemote(remote, trimmedRemote)
	}

	return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
}

// parseURLRemote handles "[user@]host[:port]/owner/repo[.git]".
func parseURLRemote(input string, remainder string, protocol RemoteProtocol) (RemoteURL, error) {
	hostAndPath := strings.SplitN(remainder, pathSeparatorConstant, 2)
	if len(hostAndPath) != 2 {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}

	host := hostAndPath[0]
	if userIndex := strings.LastIndex(host, sshUserDelimiterConstant); userIndex >= 0 {
		host = host[userIndex+1:]
	}
	if portIndex := strings.Index(host, scpPathDelimiterConstant); portIndex >= 0 {
		host = host[:portIndex]
	}
	if len(host) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}

	owner, repository, splitError := splitOwnerAndRepository(input, hostAndPath[1])
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: protocol, Host: host, Owner: owner, Repository: repository}, nil
}

// parseScpRemote handles "[user@]host:owner/repo[.git]".
func parseScpRemote(input string, remote string) (RemoteURL, error) {
	hostAndPath := strings.SplitN(remote, scpPathDelimiterConstant, 2)
	host := hostAndPath[0]
	if userIndex := strings.LastIndex(host, sshUserDelimiterConstant); userIndex >= 0 {
		host = host[userIndex+1:]
	}
	if len(host) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}

	owner, repository, splitError := splitOwnerAndRepository(input, hostAndPath[1])
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: RemoteProtocolSSH, Host: host, Owner: owner, Repository: repository}, nil
}

func splitOwnerAndRepository(input string, path string) (string, string, error) {
	segments := make([]string, 0)
	for _, segment := range strings.Split(strings.Trim(path, pathSeparatorConstant), pathSeparatorConstant) {
		if len(segment) > 0 {
			segments = append(segments, segment)
		}
	}
	if len(segments) < 2 {
		return "", "", RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}

	repository := strings.TrimSuffix(segments[len(segments)-1], gitSuffixConstant)
	if len(repository) == 0 {
		return "", "", RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}
	return segments[len(segments)-2], repository, nil
}
