package update

import (
	"context"
	"fmt"
	"time"

	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/versioning"
	"github.com/spf13/afero"
)

// TagSource reports the newest version published at a repository URL.
// *remote.Client satisfies it.
type TagSource interface {
	LatestVersion(ctx context.Context, url string) (version string, ok bool, err error)
}

// Checker compares local bundles against their published versions,
// caching answers per bundle.
type Checker struct {
	source   TagSource
	fs       afero.Fs
	cacheDir string
	maxAge   time.Duration
	now      func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithMaxAge sets how long a cached answer is trusted. Zero disables the
// cache.
func WithMaxAge(d time.Duration) Option {
	return func(c *Checker) {
		c.maxAge = d
	}
}

// WithClock sets the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// NewChecker creates a Checker that keeps its cache in cacheDir on fs.
func NewChecker(source TagSource, fs afero.Fs, cacheDir string, opts ...Option) *Checker {
	c := &Checker{
		source:   source,
		fs:       fs,
		cacheDir: cacheDir,
		maxAge:   DefaultCacheMaxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check returns whether a newer version of m is published. A fresh cached
// answer for the same repository and local version is reused unless force
// is set. A remote without version tags reports no update.
func (c *Checker) Check(ctx context.Context, m *manifest.Manifest, force bool) (*VersionCache, error) {
	logger := logging.GetLogger("update")
	if !m.IsPublished() {
		return nil, fmt.Errorf("%s has no repository configured", m.Name)
	}

	cache, err := LoadCache(c.fs, c.cacheDir)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring unreadable update cache")
		cache = Cache{}
	}

	now := c.now()
	entry := cache[m.Name]
	if !force && c.maxAge > 0 && entry != nil &&
		entry.Repository == m.Repository.URL &&
		entry.CurrentVersion == m.Version &&
		!IsCacheStale(entry, c.maxAge, now) {
		logger.Debug().Str("bundle", m.Name).Time("checkedAt", entry.CheckedAt).Msg("using cached update check")
		return entry, nil
	}

	latest, ok, err := c.source.LatestVersion(ctx, m.Repository.URL)
	if err != nil {
		return nil, fmt.Errorf("checking %s for updates: %w", m.Name, err)
	}
	entry = &VersionCache{
		Repository:     m.Repository.URL,
		LatestVersion:  latest,
		CurrentVersion: m.Version,
		CheckedAt:      now,
	}
	if ok {
		entry.UpdateAvailable = versioning.Compare(latest, m.Version) > 0
	}

	cache[m.Name] = entry
	if err := SaveCache(c.fs, c.cacheDir, cache); err != nil {
		logger.Warn().Err(err).Msg("could not save update cache")
	}
	logger.Info().
		Str("bundle", m.Name).
		Str("current", m.Version).
		Str("latest", latest).
		Bool("updateAvailable", entry.UpdateAvailable).
		Msg("checked for updates")
	return entry, nil
}

// Invalidate drops the cached answer for name.
func (c *Checker) Invalidate(name string) error {
	cache, err := LoadCache(c.fs, c.cacheDir)
	if err != nil {
		return err
	}
	if _, ok := cache[name]; !ok {
		return nil
	}
	delete(cache, name)
	return SaveCache(c.fs, c.cacheDir, cache)
}
