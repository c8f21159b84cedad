package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/agentx-labs/confshare/internal/branding"
	"github.com/agentx-labs/confshare/internal/conflict"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Recognized configuration keys.
const (
	KeyShareDir      = "share_dir"
	KeyClaudeDir     = "claude_dir"
	KeyRemoteTimeout = "remote_timeout"
	KeyConflictMode  = "conflict_mode"
	KeyHooksMode     = "hooks_mode"
	KeyGitHubToken   = "github_token"
	KeyGitLabToken   = "gitlab_token"
	KeyLogFile       = "log_file"
)

// DefaultRemoteTimeout bounds each remote operation unless configured.
const DefaultRemoteTimeout = 60 * time.Second

var secretKeys = map[string]bool{KeyGitHubToken: true, KeyGitLabToken: true}

// Config is the user's settings read from ~/.confshare/config.yaml and
// CONFSHARE_* environment variables.
type Config struct {
	v    *viper.Viper
	fs   afero.Fs
	home string
}

// Dir returns the settings directory under home (e.g. ~/.confshare).
func Dir(home string) string {
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the settings file under home.
func FilePath(home string) string {
	return filepath.Join(Dir(home), fileName+"."+fileType)
}

// UserHome returns the current user's home directory, or "." when it
// cannot be determined.
func UserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load reads settings for the user whose home directory is home. A missing
// settings file is not an error.
func Load(fs afero.Fs, home string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(FilePath(home))
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.AutomaticEnv()

	v.SetDefault(KeyShareDir, filepath.Join(Dir(home), branding.ShareDir()))
	v.SetDefault(KeyClaudeDir, filepath.Join(home, branding.ConfigDir()))
	v.SetDefault(KeyRemoteTimeout, DefaultRemoteTimeout.String())
	v.SetDefault(KeyConflictMode, string(conflict.Ask))
	v.SetDefault(KeyHooksMode, string(manifest.HooksSmart))
	v.SetDefault(KeyLogFile, "")

	// Tokens also come from the conventional host variables.
	_ = v.BindEnv(KeyGitHubToken, branding.EnvVar(KeyGitHubToken), "GITHUB_TOKEN")
	_ = v.BindEnv(KeyGitLabToken, branding.EnvVar(KeyGitLabToken), "GITLAB_TOKEN")

	c := &Config{v: v, fs: fs, home: home}
	exists, err := afero.Exists(fs, FilePath(home))
	if err != nil {
		return nil, fmt.Errorf("checking config file: %w", err)
	}
	if exists {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", FilePath(home), err)
		}
	}
	return c, nil
}

// Keys lists every recognized key, sorted.
func Keys() []string {
	keys := []string{
		KeyShareDir, KeyClaudeDir, KeyRemoteTimeout, KeyConflictMode,
		KeyHooksMode, KeyGitHubToken, KeyGitLabToken, KeyLogFile,
	}
	sort.Strings(keys)
	return keys
}

func known(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns a config value by key. Returns empty string if not set.
func (c *Config) Get(key string) string {
	return c.v.GetString(key)
}

// Display returns a value safe to print: tokens are masked.
func (c *Config) Display(key string) string {
	val := c.Get(key)
	if secretKeys[key] && val != "" {
		return "********"
	}
	return val
}

// Set validates and writes a config key-value pair to the settings file.
func (c *Config) Set(key, value string) error {
	if !known(key) {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := validate(key, value); err != nil {
		return err
	}

	dir := Dir(c.home)
	if err := c.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	// Only file-backed values are written; defaults and environment stay out.
	path := FilePath(c.home)
	file := viper.New()
	file.SetFs(c.fs)
	file.SetConfigFile(path)
	file.SetConfigType(fileType)
	if exists, _ := afero.Exists(c.fs, path); exists {
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	file.Set(key, value)
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	c.v.Set(key, value)
	return nil
}

func validate(key, value string) error {
	var err error
	switch key {
	case KeyRemoteTimeout:
		var d time.Duration
		if d, err = time.ParseDuration(value); err == nil && d <= 0 {
			err = fmt.Errorf("must be positive")
		}
	case KeyConflictMode:
		_, err = conflict.ParseMode(value)
	case KeyHooksMode:
		_, err = manifest.ParseHooksMode(value)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// RemoteTimeout is the per-operation bound for git and hosting calls.
func (c *Config) RemoteTimeout() time.Duration {
	d := c.v.GetDuration(KeyRemoteTimeout)
	if d <= 0 {
		return DefaultRemoteTimeout
	}
	return d
}

// ConflictMode is the default conflict mode for apply.
func (c *Config) ConflictMode() conflict.Mode {
	m, err := conflict.ParseMode(c.Get(KeyConflictMode))
	if err != nil {
		return conflict.Ask
	}
	return m
}

// HooksMode is the default hooks mode for apply.
func (c *Config) HooksMode() manifest.HooksMode {
	m, err := manifest.ParseHooksMode(c.Get(KeyHooksMode))
	if err != nil {
		return manifest.HooksSmart
	}
	return m
}

// Token returns the access token configured for a hosting service.
func (c *Config) Token(t manifest.RepoType) string {
	switch t {
	case manifest.RepoGitHub:
		return c.Get(KeyGitHubToken)
	case manifest.RepoGitLab:
		return c.Get(KeyGitLabToken)
	}
	return ""
}

// Paths are the resolved locations every command works against.
type Paths struct {
	Home        string
	ConfigFile  string
	ClaudeDir   string // assistant configuration tree
	ShareDir    string // local bundle library
	DownloadDir string // scratch space for fetched bundles
	CacheDir    string // update-check cache
}

// Paths resolves the configured locations, expanding a leading ~.
func (c *Config) Paths() Paths {
	return Paths{
		Home:        c.home,
		ConfigFile:  FilePath(c.home),
		ClaudeDir:   ExpandHome(c.Get(KeyClaudeDir), c.home),
		ShareDir:    ExpandHome(c.Get(KeyShareDir), c.home),
		DownloadDir: filepath.Join(os.TempDir(), branding.CLIName(), "download"),
		CacheDir:    filepath.Join(xdg.CacheHome, branding.CLIName()),
	}
}

// ExpandHome replaces a leading ~ in path with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
