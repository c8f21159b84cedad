package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/versioning"
)

// DefaultTimeout bounds every git invocation unless overridden.
const DefaultTimeout = 60 * time.Second

// Commit identity used for bundle repositories.
const (
	AuthorName  = "confshare"
	AuthorEmail = "confshare@localhost"
)

// Client runs the git CLI for operations that talk to a remote or mutate a
// work tree. Local inspection goes through go-git instead.
type Client struct {
	git     string
	timeout time.Duration
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each git invocation.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithToken sets the bearer token injected into http(s) remote URLs.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithGitBinary overrides the git executable (useful for testing).
func WithGitBinary(path string) Option {
	return func(c *Client) {
		c.git = path
	}
}

// NewClient creates a git client.
func NewClient(opts ...Option) *Client {
	c := &Client{git: "git", timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) run(ctx context.Context, dir, op, target string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logging.LogCommand(c.git, redactAll(args, c.token))

	cmd := exec.CommandContext(ctx, c.git, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s", c.timeout)
	}
	return string(out), &RemoteError{
		Op:     op,
		Target: Redact(target, c.token),
		Output: Redact(string(out), c.token),
		Err:    errors.New(Redact(err.Error(), c.token)),
	}
}

func (c *Client) authURL(raw string) string {
	return InjectToken(raw, c.token)
}

// Clone clones url into dir. An empty branch uses the remote default.
func (c *Client) Clone(ctx context.Context, url, dir, branch string) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, c.authURL(url), dir)
	if _, err := c.run(ctx, "", "clone", url, args...); err != nil {
		return err
	}
	// The clone records the credentialed URL; put the plain one back.
	if c.token != "" {
		_, err := c.run(ctx, dir, "set-url", url, "remote", "set-url", "origin", url)
		return err
	}
	return nil
}

// remoteURL returns the fetch URL configured for a named remote.
func (c *Client) remoteURL(dir, remote string) (string, error) {
	remotes, err := Remotes(dir)
	if err != nil {
		return "", err
	}
	url, ok := remotes[remote]
	if !ok {
		return "", fmt.Errorf("remote %q is not configured in %s", remote, dir)
	}
	return url, nil
}

// endpoint is what to pass git for a named remote: the remote name itself,
// or its credentialed URL when a token is set. The credentialed URL is only
// ever passed on the command line, never written to the repository config.
func (c *Client) endpoint(dir, remote string) (string, error) {
	if c.token == "" {
		return remote, nil
	}
	url, err := c.remoteURL(dir, remote)
	if err != nil {
		return "", err
	}
	return c.authURL(url), nil
}

// Fetch updates remote-tracking refs and tags for one remote.
func (c *Client) Fetch(ctx context.Context, dir, remote, branch string) error {
	ep, err := c.endpoint(dir, remote)
	if err != nil {
		return err
	}
	refspec := fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch)
	_, err = c.run(ctx, dir, "fetch", remote, "fetch", "--tags", ep, refspec)
	return err
}

// Merge merges ref into the current branch.
func (c *Client) Merge(ctx context.Context, dir, ref string) error {
	_, err := c.run(ctx, dir, "merge", ref, "merge", "--ff", "--no-edit", ref)
	return err
}

// Pull fetches branch from remote and merges it.
func (c *Client) Pull(ctx context.Context, dir, remote, branch string) error {
	if err := c.Fetch(ctx, dir, remote, branch); err != nil {
		return err
	}
	return c.Merge(ctx, dir, remote+"/"+branch)
}

// Commit stages every change in dir and commits it. A clean tree returns
// ErrNothingToCommit.
func (c *Client) Commit(ctx context.Context, dir, message string) error {
	if _, err := c.run(ctx, dir, "add", dir, "add", "-A"); err != nil {
		return err
	}
	out, err := c.run(ctx, dir, "commit", dir,
		"-c", "user.name="+AuthorName,
		"-c", "user.email="+AuthorEmail,
		"commit", "-m", message)
	if err != nil && strings.Contains(out, "nothing to commit") {
		return ErrNothingToCommit
	}
	return err
}

// Restore discards local modifications to path in the work tree.
func (c *Client) Restore(ctx context.Context, dir, path string) error {
	_, err := c.run(ctx, dir, "checkout", path, "checkout", "--", path)
	return err
}

// Push pushes the current HEAD to branch on remote and sets upstream when
// pushing by name.
func (c *Client) Push(ctx context.Context, dir, remote, branch string) error {
	ep, err := c.endpoint(dir, remote)
	if err != nil {
		return err
	}
	args := []string{"push"}
	if ep == remote {
		args = append(args, "-u")
	}
	args = append(args, ep, "HEAD:refs/heads/"+branch)
	_, err = c.run(ctx, dir, "push", remote, args...)
	return err
}

// Tag creates an annotated tag at HEAD.
func (c *Client) Tag(ctx context.Context, dir, name, message string) error {
	if message == "" {
		message = "Release " + name
	}
	_, err := c.run(ctx, dir, "tag", name,
		"-c", "user.name="+AuthorName,
		"-c", "user.email="+AuthorEmail,
		"tag", "-a", name, "-m", message)
	return err
}

// PushTags pushes every tag to remote.
func (c *Client) PushTags(ctx context.Context, dir, remote string) error {
	ep, err := c.endpoint(dir, remote)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, dir, "push-tags", remote, "push", ep, "--tags")
	return err
}

// LsRemote checks that url answers as a git repository.
func (c *Client) LsRemote(ctx context.Context, url string) error {
	_, err := c.run(ctx, "", "ls-remote", url, "ls-remote", "--heads", c.authURL(url))
	return err
}

// RemoteTags lists the tag names published at url.
func (c *Client) RemoteTags(ctx context.Context, url string) ([]string, error) {
	out, err := c.run(ctx, "", "ls-remote", url, "ls-remote", "--tags", "--refs", c.authURL(url))
	if err != nil {
		return nil, err
	}
	return parseTagRefs(out), nil
}

// LatestVersion returns the greatest v-prefixed version tag at url, without
// the prefix. ok is false when the remote has no version tags.
func (c *Client) LatestVersion(ctx context.Context, url string) (version string, ok bool, err error) {
	tags, err := c.RemoteTags(ctx, url)
	if err != nil {
		return "", false, err
	}
	version, ok = versioning.Latest(tags)
	return version, ok, nil
}

// parseTagRefs reads `git ls-remote --tags` output into tag names.
func parseTagRefs(out string) []string {
	var tags []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		name, ok := strings.CutPrefix(fields[1], "refs/tags/")
		if !ok {
			continue
		}
		tags = append(tags, strings.TrimSuffix(name, "^{}"))
	}
	return tags
}
