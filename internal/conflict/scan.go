package conflict

import (
	"fmt"
	"path/filepath"

	"github.com/agentx-labs/confshare/internal/inventory"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/afero"
)

// Conflict is an item whose destination already exists in the target.
type Conflict struct {
	Kind manifest.Kind
	Name string
	Path string
}

// Scan reports every selected item of the bundle whose destination already
// exists under targetDir. It only reads the filesystem. Items the bundle
// does not actually contain are ignored here.
func Scan(fs afero.Fs, bundleDir, targetDir string, content, exclude manifest.ContentSet) ([]Conflict, error) {
	var conflicts []Conflict
	for _, kind := range manifest.Kinds {
		items, _, err := inventory.Resolve(fs, bundleDir, kind, content.Get(kind), exclude.Get(kind))
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", kind, err)
		}
		for _, it := range items {
			dst := filepath.Join(targetDir, it.Rel)
			exists, err := afero.Exists(fs, dst)
			if err != nil {
				return nil, fmt.Errorf("checking %s: %w", dst, err)
			}
			if exists {
				conflicts = append(conflicts, Conflict{Kind: kind, Name: it.Name, Path: dst})
			}
		}
	}
	return conflicts, nil
}
