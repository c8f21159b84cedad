package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const (
	cacheFileName = "update-check.json"
	// DefaultCacheMaxAge is the default maximum age of a cached remote check.
	DefaultCacheMaxAge = 24 * time.Hour
)

// VersionCache holds the result of one remote version check.
type VersionCache struct {
	Repository      string    `json:"repository"`
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// Cache maps bundle names to their last remote check.
type Cache map[string]*VersionCache

// LoadCache reads the check cache from dir.
// Returns an empty cache if the file does not exist (first run).
func LoadCache(fs afero.Fs, dir string) (Cache, error) {
	path := filepath.Join(dir, cacheFileName)

	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return Cache{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading update cache: %w", err)
	}

	cache := Cache{}
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing update cache: %w", err)
	}
	return cache, nil
}

// SaveCache writes the check cache to dir.
func SaveCache(fs afero.Fs, dir string, cache Cache) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling update cache: %w", err)
	}

	path := filepath.Join(dir, cacheFileName)
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("writing update cache: %w", err)
	}
	return nil
}

// IsCacheStale returns true if the entry is nil or older than maxAge at now.
func IsCacheStale(entry *VersionCache, maxAge time.Duration, now time.Time) bool {
	if entry == nil {
		return true
	}
	return now.Sub(entry.CheckedAt) > maxAge
}
