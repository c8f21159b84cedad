package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/afero"
)

// ErrNotFound is returned when no cached bundle has the requested name.
var ErrNotFound = errors.New("plugin not found")

// Role is how the local user relates to a bundle.
type Role string

const (
	// RoleUser bundles were received from someone else.
	RoleUser Role = "user"
	// RoleSharer bundles are maintained locally and published to a remote.
	RoleSharer Role = "sharer"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(s)); r {
	case RoleUser, RoleSharer:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q (want user or sharer)", s)
}

// Plugin is a cached bundle as shown by list.
type Plugin struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Author      string              `json:"author"`
	Path        string              `json:"path"`
	Repository  manifest.Repository `json:"repository"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Targets     []string            `json:"targets"`
}

// Role reports sharer when the bundle names a remote repository.
func (p Plugin) Role() Role {
	if p.Repository.URL != "" {
		return RoleSharer
	}
	return RoleUser
}

// Library is the share directory where applied and packed bundles are
// cached, one directory per bundle name.
type Library struct {
	fs  afero.Fs
	dir string
}

// Open returns a library rooted at dir. The directory need not exist yet.
func Open(fs afero.Fs, dir string) *Library {
	return &Library{fs: fs, dir: dir}
}

// Dir returns the library root.
func (l *Library) Dir() string { return l.dir }

// PluginDir returns where the bundle called name is cached.
func (l *Library) PluginDir(name string) string {
	return filepath.Join(l.dir, name)
}

// List returns every cached bundle sorted by name. Directories without a
// readable manifest are skipped.
func (l *Library) List() ([]Plugin, error) {
	logger := logging.GetLogger("library")

	infos, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		if exists, _ := afero.DirExists(l.fs, l.dir); !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", l.dir, err)
	}

	var plugins []Plugin
	for _, info := range infos {
		if !info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		dir := filepath.Join(l.dir, info.Name())
		if !manifest.Exists(l.fs, dir) {
			continue
		}
		m, err := manifest.LoadDir(l.fs, dir)
		if err != nil {
			logger.Debug().Err(err).Str("dir", dir).Msg("skipping unreadable bundle")
			continue
		}
		plugins = append(plugins, describe(m, dir, info.Name()))
	}

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins, nil
}

func describe(m *manifest.Manifest, dir, dirName string) Plugin {
	name := m.Name
	if name == "" {
		name = dirName
	}
	targets := make([]string, 0, len(m.Apply))
	for _, rec := range m.Apply {
		targets = append(targets, rec.Target)
	}
	return Plugin{
		Name:        name,
		Version:     m.Version,
		Description: m.Description,
		Author:      m.Author,
		Path:        dir,
		Repository:  m.Repository,
		UpdatedAt:   m.Metadata.UpdatedAt.Time,
		Targets:     targets,
	}
}

// Find returns the cached bundle called name, matching the manifest name
// or the directory name.
func (l *Library) Find(name string) (*Plugin, error) {
	plugins, err := l.List()
	if err != nil {
		return nil, err
	}
	for i := range plugins {
		if plugins[i].Name == name || filepath.Base(plugins[i].Path) == name {
			return &plugins[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Load reads the manifest of the cached bundle called name and returns it
// with the bundle directory.
func (l *Library) Load(name string) (*manifest.Manifest, string, error) {
	p, err := l.Find(name)
	if err != nil {
		return nil, "", err
	}
	m, err := manifest.LoadDir(l.fs, p.Path)
	if err != nil {
		return nil, "", err
	}
	return m, p.Path, nil
}

// Save writes m into the cached bundle directory dir.
func (l *Library) Save(dir string, m *manifest.Manifest) error {
	return manifest.Save(l.fs, filepath.Join(dir, manifest.FileName), m)
}

// Cache stores a copy of the bundle at bundleDir under the library with m
// as its manifest and returns the cached directory. When bundleDir already
// is the cached copy only the manifest is rewritten.
func (l *Library) Cache(bundleDir string, m *manifest.Manifest) (string, error) {
	dst := l.PluginDir(m.Name)
	if filepath.Clean(bundleDir) != filepath.Clean(dst) {
		if _, err := bundle.CopyTree(l.fs, bundleDir, dst); err != nil {
			return "", err
		}
	}
	if err := l.Save(dst, m); err != nil {
		return "", err
	}
	logger := logging.GetLogger("library")
	logger.Info().Str("bundle", m.Name).Str("dir", dst).Msg("cached bundle")
	return dst, nil
}

// Delete removes a cached bundle directory.
func (l *Library) Delete(dir string) error {
	if err := l.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	return nil
}

// Filter keeps the plugins with the given role. RoleUser keeps everything,
// since a sharer also uses what they publish.
func Filter(plugins []Plugin, role Role) []Plugin {
	if role != RoleSharer {
		return plugins
	}
	var out []Plugin
	for _, p := range plugins {
		if p.Role() == RoleSharer {
			out = append(out, p)
		}
	}
	return out
}
