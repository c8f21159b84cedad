package remote

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/agentx-labs/confshare/internal/manifest"
)

// RepoPath is a repository location split into host and path.
type RepoPath struct {
	Host  string // e.g. github.com
	Owner string // everything before the last path element
	Name  string // last path element without .git
}

// FullName returns owner/name.
func (p RepoPath) FullName() string {
	if p.Owner == "" {
		return p.Name
	}
	return p.Owner + "/" + p.Name
}

// ParseRepoURL reads https, ssh and scp-style git URLs.
func ParseRepoURL(raw string) (RepoPath, error) {
	s := strings.TrimSpace(raw)
	var host, path string

	switch {
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil {
			return RepoPath{}, fmt.Errorf("parsing repository URL %q: %w", Redact(raw, ""), err)
		}
		host, path = u.Hostname(), u.Path
	case strings.Contains(s, "@") && strings.Contains(s, ":"):
		rest := s[strings.Index(s, "@")+1:]
		i := strings.Index(rest, ":")
		host, path = rest[:i], rest[i+1:]
	default:
		return RepoPath{}, fmt.Errorf("unrecognized repository URL %q", Redact(raw, ""))
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	if path == "" {
		return RepoPath{}, fmt.Errorf("repository URL %q has no path", Redact(raw, ""))
	}
	p := RepoPath{Host: host, Name: path}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		p.Owner, p.Name = path[:i], path[i+1:]
	}
	return p, nil
}

// RepoName returns the last path element of a repository URL, used as the
// checkout directory name.
func RepoName(raw string) string {
	if p, err := ParseRepoURL(raw); err == nil {
		return p.Name
	}
	s := strings.TrimSuffix(strings.TrimRight(raw, "/"), ".git")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// IsURL reports whether source names a remote repository rather than a
// local path.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "ssh://") ||
		strings.HasPrefix(source, "git@")
}

// InjectToken returns an http(s) URL carrying token as oauth2 credentials,
// replacing any userinfo already present. Other URLs are returned as-is.
func InjectToken(raw, token string) string {
	if token == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return raw
	}
	u.User = url.UserPassword("oauth2", token)
	return u.String()
}

// TypeOf guesses the hosting service from a repository URL's host.
func TypeOf(raw string) manifest.RepoType {
	p, err := ParseRepoURL(raw)
	if err != nil {
		return manifest.RepoCustom
	}
	switch strings.ToLower(p.Host) {
	case "github.com":
		return manifest.RepoGitHub
	case "gitlab.com":
		return manifest.RepoGitLab
	}
	return manifest.RepoCustom
}
