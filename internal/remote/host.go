package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentx-labs/confshare/internal/branding"
	"github.com/agentx-labs/confshare/internal/manifest"
)

const (
	githubAPIBase = "https://api.github.com"
	gitlabAPIBase = "https://gitlab.com/api/v4"
)

// Host talks to repository hosting services over their REST APIs.
type Host struct {
	httpClient  *http.Client
	githubAPI   string
	gitlabAPI   string
	githubToken string
	gitlabToken string
	git         *Client
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) HostOption {
	return func(h *Host) {
		h.httpClient = c
	}
}

// WithGitHubAPI overrides the GitHub API base URL.
func WithGitHubAPI(base string) HostOption {
	return func(h *Host) {
		h.githubAPI = strings.TrimRight(base, "/")
	}
}

// WithGitLabAPI overrides the GitLab API base URL.
func WithGitLabAPI(base string) HostOption {
	return func(h *Host) {
		h.gitlabAPI = strings.TrimRight(base, "/")
	}
}

// WithHostTokens sets the GitHub and GitLab access tokens.
func WithHostTokens(github, gitlab string) HostOption {
	return func(h *Host) {
		h.githubToken = github
		h.gitlabToken = gitlab
	}
}

// WithGitClient sets the client used to check custom remotes.
func WithGitClient(c *Client) HostOption {
	return func(h *Host) {
		h.git = c
	}
}

// NewHost creates a Host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		httpClient: http.DefaultClient,
		githubAPI:  githubAPIBase,
		gitlabAPI:  gitlabAPIBase,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.git == nil {
		h.git = NewClient()
	}
	return h
}

// TokenFor returns the token configured for a repository type.
func (h *Host) TokenFor(t manifest.RepoType) string {
	switch t {
	case manifest.RepoGitHub:
		return h.githubToken
	case manifest.RepoGitLab:
		return h.gitlabToken
	}
	return ""
}

// Exists reports whether the repository answers. GitHub and GitLab are
// asked through their APIs, custom remotes through git ls-remote.
func (h *Host) Exists(ctx context.Context, repo manifest.Repository) (bool, error) {
	switch repo.Type {
	case manifest.RepoGitHub:
		p, err := ParseRepoURL(repo.URL)
		if err != nil {
			return false, err
		}
		return h.lookup(ctx, fmt.Sprintf("%s/repos/%s", h.githubAPI, p.FullName()), repo.Type)
	case manifest.RepoGitLab:
		p, err := ParseRepoURL(repo.URL)
		if err != nil {
			return false, err
		}
		return h.lookup(ctx, fmt.Sprintf("%s/projects/%s", h.gitlabAPI, url.PathEscape(p.FullName())), repo.Type)
	case manifest.RepoCustom:
		if err := h.git.LsRemote(ctx, repo.URL); err != nil {
			return false, nil
		}
		return true, nil
	}
	return false, fmt.Errorf("repository type %q: %w", repo.Type, ErrUnsupported)
}

func (h *Host) lookup(ctx context.Context, endpoint string, t manifest.RepoType) (bool, error) {
	req, err := h.newRequest(ctx, http.MethodGet, endpoint, nil, t)
	if err != nil {
		return false, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return false, h.apiError("checking", endpoint, t, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, h.apiError("checking", endpoint, t, fmt.Errorf("access denied (status %d); check the %s token", resp.StatusCode, t))
	}
	return false, h.apiError("checking", endpoint, t, fmt.Errorf("API returned status %d", resp.StatusCode))
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Private     bool   `json:"private"`
	Description string `json:"description"`
	AutoInit    bool   `json:"auto_init"`
}

type createRepoResponse struct {
	CloneURL string `json:"clone_url"`
	HTMLURL  string `json:"html_url"`
}

// Create makes a new, empty repository owned by the token's user and
// returns its clone URL. Only GitHub is supported.
func (h *Host) Create(ctx context.Context, t manifest.RepoType, name string, private bool, description string) (string, error) {
	if t != manifest.RepoGitHub {
		return "", fmt.Errorf("creating %s repositories: %w", t, ErrUnsupported)
	}
	if h.githubToken == "" {
		return "", fmt.Errorf("creating GitHub repository %s: a GitHub token is required", name)
	}

	body, err := json.Marshal(createRepoRequest{Name: name, Private: private, Description: description})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	endpoint := h.githubAPI + "/user/repos"
	req, err := h.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body), t)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", h.apiError("creating", endpoint, t, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", &RemoteError{
			Op:     "creating",
			Target: name,
			Output: h.redact(string(data), t),
			Err:    fmt.Errorf("GitHub API returned status %d", resp.StatusCode),
		}
	}

	var created createRepoResponse
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("parsing repository JSON: %w", err)
	}
	if created.CloneURL == "" {
		return created.HTMLURL + ".git", nil
	}
	return created.CloneURL, nil
}

func (h *Host) newRequest(ctx context.Context, method, endpoint string, body io.Reader, t manifest.RepoType) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", branding.UserAgent())

	switch t {
	case manifest.RepoGitHub:
		req.Header.Set("Accept", "application/vnd.github+json")
		if h.githubToken != "" {
			req.Header.Set("Authorization", "token "+h.githubToken)
		}
	case manifest.RepoGitLab:
		if h.gitlabToken != "" {
			req.Header.Set("PRIVATE-TOKEN", h.gitlabToken)
		}
	}
	return req, nil
}

func (h *Host) redact(s string, t manifest.RepoType) string {
	return Redact(s, h.TokenFor(t))
}

func (h *Host) apiError(op, endpoint string, t manifest.RepoType, err error) error {
	return &RemoteError{
		Op:     op,
		Target: h.redact(endpoint, t),
		Err:    errors.New(h.redact(err.Error(), t)),
	}
}
