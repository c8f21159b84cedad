package cli

import (
	"encoding/json"
	"fmt"

	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/cobra"
)

// contentFlags are the per-kind selection flags shared by pack and apply.
type contentFlags struct {
	commands string
	agents   string
	skills   string
	hooks    bool
	mcp      bool
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.commands, "commands", "", `Commands to include ("all" or comma-separated names)`)
	cmd.Flags().StringVar(&f.agents, "agents", "", `Agents to include ("all" or comma-separated names)`)
	cmd.Flags().StringVar(&f.skills, "skills", "", `Skills to include ("all" or comma-separated names)`)
	cmd.Flags().BoolVar(&f.hooks, "hooks", false, "Include hooks.json")
	cmd.Flags().BoolVar(&f.mcp, "mcp", false, "Include mcp.json")
}

// set returns the selection the flags describe, or nil when none was given.
func (f *contentFlags) set() manifest.ContentSet {
	c := manifest.NewContentSet()
	c[manifest.Commands] = manifest.ParseSelection(f.commands)
	c[manifest.Agents] = manifest.ParseSelection(f.agents)
	if s := manifest.ParseSelection(f.skills); !s.Empty() {
		c[manifest.Skills] = s
	}
	if f.hooks {
		c[manifest.Hooks] = manifest.Select(manifest.HooksFile)
	}
	if f.mcp {
		c[manifest.MCP] = manifest.Select(manifest.MCPFile)
	}
	if c.Empty() {
		return nil
	}
	return c
}

// parseExclude reads an exclude map given as JSON, e.g.
// {"commands":["draft-*"],"agents":["old"]}.
func parseExclude(raw string) (manifest.ContentSet, error) {
	if raw == "" {
		return manifest.NewContentSet(), nil
	}
	var set manifest.ContentSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("parsing --exclude: %w", err)
	}
	for kind := range set {
		if !isKind(kind) {
			return nil, fmt.Errorf("parsing --exclude: unknown content kind %q", kind)
		}
	}
	return set, nil
}

func isKind(k manifest.Kind) bool {
	for _, kind := range manifest.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}
