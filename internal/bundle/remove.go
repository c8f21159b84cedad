package bundle

import (
	"fmt"
	"path/filepath"

	"github.com/agentx-labs/confshare/internal/hooks"
	"github.com/agentx-labs/confshare/internal/inventory"
	"github.com/agentx-labs/confshare/internal/ledger"
	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/sanitize"
	"github.com/spf13/afero"
)

// AppliedPaths lists every path m's apply records say was written. Records
// from older tooling name only selections; those are expanded against the
// bundle at bundleDir, and their named items are included even when the
// bundle no longer holds them.
func AppliedPaths(fs afero.Fs, bundleDir string, m *manifest.Manifest) []string {
	return ledger.Open(m).AppliedPaths(func(kind manifest.Kind, sel, exclude manifest.Selection) []string {
		items, missing, err := inventory.Resolve(fs, bundleDir, kind, sel, exclude)
		if err != nil {
			return nil
		}
		rels := make([]string, 0, len(items)+len(missing))
		for _, it := range items {
			rels = append(rels, it.Rel)
		}
		for _, name := range missing {
			rels = append(rels, inventory.RelPath(kind, name))
		}
		return rels
	})
}

// RemoveOptions controls Remove.
type RemoveOptions struct {
	// Bundle holds the hook definitions to take back out of hooks files.
	Bundle string
	Paths  []string
	// Env restores the bundle's placeholders the way apply did, so restored
	// definitions are recognized.
	Env    map[string]string
	DryRun bool
}

// Remove deletes applied paths. Absent paths are skipped. Hooks files lose
// only the bundle's definitions and are deleted once nothing else is left.
func Remove(fs afero.Fs, opts RemoveOptions) *Report {
	logger := logging.GetLogger("bundle")
	report := &Report{DryRun: opts.DryRun}

	for _, path := range opts.Paths {
		kind := kindOf(path)
		name := filepath.Base(path)

		exists, err := afero.Exists(fs, path)
		if err != nil {
			report.failed(kind, name, path, &IOError{Op: "checking", Path: path, Err: err})
			continue
		}
		if !exists {
			report.skipped(kind, name, path, "not present", nil)
			continue
		}
		if kind == manifest.Hooks {
			removeHooks(fs, opts, path, report)
			continue
		}
		if !opts.DryRun {
			if err := fs.RemoveAll(path); err != nil {
				report.failed(kind, name, path, &IOError{Op: "removing", Path: path, Err: err})
				continue
			}
		}
		logger.Debug().Str("path", path).Bool("dryRun", opts.DryRun).Msg("removed applied path")
		report.written(kind, name, path, "removed")
	}
	return report
}

func removeHooks(fs afero.Fs, opts RemoveOptions, path string, report *Report) {
	name := filepath.Base(path)
	src := filepath.Join(opts.Bundle, manifest.HooksFile)
	incoming, err := readJSON(fs, src)
	if err != nil {
		report.skipped(manifest.Hooks, name, path, "bundle hooks unavailable, left in place", &IOError{Op: "reading", Path: src, Err: err})
		return
	}
	if len(opts.Env) > 0 {
		incoming = sanitize.Restore(incoming, opts.Env)
	}
	existing, err := readJSON(fs, path)
	if err != nil {
		report.failed(manifest.Hooks, name, path, &IOError{Op: "reading", Path: path, Err: err})
		return
	}

	rest, removed := hooks.Subtract(existing, incoming)
	switch {
	case hooks.Empty(rest):
		if !opts.DryRun {
			if err := fs.Remove(path); err != nil {
				report.failed(manifest.Hooks, name, path, &IOError{Op: "removing", Path: path, Err: err})
				return
			}
		}
		report.written(manifest.Hooks, name, path, "removed")
	case removed == 0:
		report.skipped(manifest.Hooks, name, path, "no bundle hooks left", nil)
	default:
		if !opts.DryRun {
			if err := writeJSON(fs, path, rest); err != nil {
				report.failed(manifest.Hooks, name, path, &IOError{Op: "writing", Path: path, Err: err})
				return
			}
		}
		report.written(manifest.Hooks, name, path, fmt.Sprintf("%d bundle hook(s) removed", removed))
	}
}

func kindOf(path string) manifest.Kind {
	switch base := filepath.Base(path); base {
	case manifest.HooksFile:
		return manifest.Hooks
	case manifest.MCPFile:
		return manifest.MCP
	}
	return manifest.Kind(filepath.Base(filepath.Dir(path)))
}
