package remote

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultBranch is used when a repository has no commits yet.
const DefaultBranch = "main"

// IsRepo reports whether dir is the root of a git work tree.
func IsRepo(dir string) bool {
	_, err := git.PlainOpen(dir)
	return err == nil
}

// Init creates a repository in dir whose initial branch is DefaultBranch.
// An existing repository is left untouched.
func Init(dir string) error {
	if IsRepo(dir) {
		return nil
	}
	_, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch)},
	})
	if err != nil {
		return fmt.Errorf("initializing repository in %s: %w", dir, err)
	}
	return nil
}

// AddRemote points remote name at url, replacing any existing URL.
func AddRemote(dir, name, url string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("opening repository %s: %w", dir, err)
	}
	if err := repo.DeleteRemote(name); err != nil && !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("replacing remote %s: %w", name, err)
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	if err != nil {
		return fmt.Errorf("adding remote %s: %w", name, err)
	}
	return nil
}

// Remotes maps remote names to their first URL.
func Remotes(dir string) (map[string]string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", dir, err)
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("listing remotes: %w", err)
	}
	out := make(map[string]string, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		if len(cfg.URLs) > 0 {
			out[cfg.Name] = cfg.URLs[0]
		}
	}
	return out, nil
}

// Tags lists local tag names, sorted.
func Tags(dir string) ([]string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", dir, err)
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}

// CurrentBranch returns the checked-out branch. A repository without
// commits reports the branch HEAD points at.
func CurrentBranch(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("opening repository %s: %w", dir, err)
	}
	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), nil
	}
	return "", fmt.Errorf("HEAD is detached in %s", dir)
}
