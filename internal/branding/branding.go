// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package; Go's //go:embed bakes it into
// the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	ConfigDir   string `yaml:"config_dir"`
	ShareDir    string `yaml:"share_dir"`
	GitHubRepo  string `yaml:"github_repo"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "confshare",
			DisplayName: "ConfShare",
			Description: "Pack, share and apply assistant configuration bundles",
			HomeDir:     ".confshare",
			EnvPrefix:   "CONFSHARE",
			ConfigDir:   ".claude",
			ShareDir:    "plugins",
			GitHubRepo:  "agentx-labs/confshare",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "confshare").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".confshare").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "CONFSHARE").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// ConfigDir returns the assistant configuration directory name under
// $HOME that bundles are packed from and applied to (e.g., ".claude").
func ConfigDir() string { load(); return defaults.ConfigDir }

// ShareDir returns the library directory name under HomeDir.
func ShareDir() string { load(); return defaults.ShareDir }

// GitHubRepo returns the "owner/repo" string of this tool.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// UserAgent is sent with every hosting API request.
func UserAgent() string { load(); return defaults.CLIName + " (+https://github.com/" + defaults.GitHubRepo + ")" }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("share_dir") → "CONFSHARE_SHARE_DIR".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
