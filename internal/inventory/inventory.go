package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

const markdownExt = ".md"

// Item is one piece of content inside a configuration tree.
type Item struct {
	Kind manifest.Kind
	Name string // command or agent stem, skill directory, or fixed file name
	Rel  string // path relative to the tree root
	Dir  bool
}

// Dir returns the directory a kind's items live in, relative to a tree root.
// Single-file kinds live at the root.
func Dir(kind manifest.Kind) string {
	switch kind {
	case manifest.Commands, manifest.Agents, manifest.Skills:
		return string(kind)
	}
	return ""
}

// RelPath returns where an item named name of the given kind lives,
// relative to a tree root.
func RelPath(kind manifest.Kind, name string) string {
	switch kind {
	case manifest.Commands, manifest.Agents:
		return filepath.Join(string(kind), name+markdownExt)
	case manifest.Skills:
		return filepath.Join(string(kind), name)
	case manifest.Hooks:
		return manifest.HooksFile
	case manifest.MCP:
		return manifest.MCPFile
	}
	return name
}

// Available lists every item of a kind present under root, sorted by name.
// A missing kind directory yields no items.
func Available(fs afero.Fs, root string, kind manifest.Kind) ([]Item, error) {
	switch kind {
	case manifest.Commands, manifest.Agents:
		return listEntries(fs, root, kind, func(info os.FileInfo) (string, bool) {
			if info.IsDir() || !strings.HasSuffix(info.Name(), markdownExt) {
				return "", false
			}
			return strings.TrimSuffix(info.Name(), markdownExt), true
		})
	case manifest.Skills:
		return listEntries(fs, root, kind, func(info os.FileInfo) (string, bool) {
			if !info.IsDir() || strings.HasPrefix(info.Name(), ".") {
				return "", false
			}
			return info.Name(), true
		})
	case manifest.Hooks, manifest.MCP:
		rel := RelPath(kind, "")
		exists, err := afero.Exists(fs, filepath.Join(root, rel))
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", filepath.Join(root, rel), err)
		}
		if !exists {
			return nil, nil
		}
		return []Item{{Kind: kind, Name: rel, Rel: rel}}, nil
	}
	return nil, fmt.Errorf("unknown content kind %q", kind)
}

func listEntries(fs afero.Fs, root string, kind manifest.Kind, accept func(os.FileInfo) (string, bool)) ([]Item, error) {
	dir := filepath.Join(root, Dir(kind))
	infos, err := afero.ReadDir(fs, dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var items []Item
	for _, info := range infos {
		name, ok := accept(info)
		if !ok {
			continue
		}
		items = append(items, Item{
			Kind: kind,
			Name: name,
			Rel:  RelPath(kind, name),
			Dir:  info.IsDir(),
		})
	}
	return items, nil
}

// Excluded reports whether name is matched by an exclude selection. Entries
// may be exact names or doublestar patterns such as "draft-*".
func Excluded(exclude manifest.Selection, name string) bool {
	if exclude.All {
		return true
	}
	for _, pattern := range exclude.Items {
		if pattern == name {
			return true
		}
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Resolve expands a selection of one kind against the tree at root.
// "all" takes every available item; named items are looked up directly and
// reported in missing when absent. Excluded items are dropped either way.
// For the single-file kinds any non-empty selection means the file. A name
// that would resolve outside its kind directory is an error.
func Resolve(fs afero.Fs, root string, kind manifest.Kind, sel, exclude manifest.Selection) (items []Item, missing []string, err error) {
	if sel.Empty() {
		return nil, nil, nil
	}

	if sel.All || kind == manifest.Hooks || kind == manifest.MCP {
		available, err := Available(fs, root, kind)
		if err != nil {
			return nil, nil, err
		}
		if !sel.All && len(available) == 0 {
			missing = append(missing, RelPath(kind, ""))
		}
		for _, it := range available {
			if !Excluded(exclude, it.Name) {
				items = append(items, it)
			}
		}
		return items, missing, nil
	}

	for _, name := range sel.Items {
		if err := manifest.CheckItemName(name); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", kind, err)
		}
		if Excluded(exclude, name) {
			continue
		}
		rel := RelPath(kind, name)
		info, err := fs.Stat(filepath.Join(root, rel))
		if os.IsNotExist(err) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("checking %s: %w", filepath.Join(root, rel), err)
		}
		items = append(items, Item{Kind: kind, Name: name, Rel: rel, Dir: info.IsDir()})
	}
	return items, missing, nil
}

// Names returns the item names in order.
func Names(items []Item) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names
}
