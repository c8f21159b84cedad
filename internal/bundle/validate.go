package bundle

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/agentx-labs/confshare/internal/inventory"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/afero"
)

// Check runs every bundle check in order: directory layout, manifest
// schema, content files and agent front matter. It returns all problems
// found; an empty slice means the bundle is valid.
func Check(fs afero.Fs, dir string, strict bool) []error {
	info, err := fs.Stat(dir)
	if err != nil {
		return []error{fmt.Errorf("bundle directory %s: %w", dir, err)}
	}
	if !info.IsDir() {
		return []error{fmt.Errorf("bundle path %s is not a directory", dir)}
	}
	if !manifest.Exists(fs, dir) {
		return []error{fmt.Errorf("missing required file %s", manifest.FileName)}
	}

	doc, err := manifest.LoadDocument(fs, filepath.Join(dir, manifest.FileName))
	if err != nil {
		return []error{err}
	}
	errs := manifest.Validate(doc, strict)

	m, err := manifest.Decode(doc)
	if err != nil {
		return append(errs, err)
	}
	errs = append(errs, ValidateContent(fs, dir, m)...)
	errs = append(errs, ValidateAgents(fs, dir, m)...)
	return errs
}

// ValidateContent reports every selected item the bundle does not contain.
// An "all" selection needs at least one item, and the hooks and service
// files must parse as JSON.
func ValidateContent(fs afero.Fs, dir string, m *manifest.Manifest) []error {
	var errs []error
	for _, kind := range manifest.Kinds {
		sel := m.Content.Get(kind)
		if sel.Empty() {
			continue
		}

		items, missing, err := inventory.Resolve(fs, dir, kind, sel, manifest.Selection{})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, name := range missing {
			errs = append(errs, &ContentMissingError{
				Kind: kind,
				Name: name,
				Path: filepath.Join(dir, inventory.RelPath(kind, name)),
			})
		}
		if sel.All && len(items) == 0 {
			errs = append(errs, &ContentMissingError{
				Kind: kind,
				Name: manifest.AllItems,
				Path: filepath.Join(dir, inventory.Dir(kind)),
			})
		}

		if kind != manifest.Hooks && kind != manifest.MCP {
			continue
		}
		for _, it := range items {
			path := filepath.Join(dir, it.Rel)
			if _, err := readJSON(fs, path); err != nil {
				errs = append(errs, fmt.Errorf("%s is not valid JSON: %w", path, err))
			}
		}
	}
	return errs
}

// ValidateAgents checks that every agent the bundle carries has front
// matter naming it and describing it.
func ValidateAgents(fs afero.Fs, dir string, m *manifest.Manifest) []error {
	items, _, err := inventory.Resolve(fs, dir, manifest.Agents, m.Content.Get(manifest.Agents), manifest.Selection{})
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, it := range items {
		path := filepath.Join(dir, it.Rel)
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			errs = append(errs, &IOError{Op: "reading", Path: path, Err: err})
			continue
		}
		if _, err := manifest.ParseAgentFrontmatter(data); err != nil {
			errs = append(errs, fmt.Errorf("agent %s: %w", it.Name, err))
		}
	}
	return errs
}

// IsContentMissing reports whether err is or wraps a ContentMissingError.
func IsContentMissing(err error) bool {
	var cm *ContentMissingError
	return errors.As(err, &cm)
}
