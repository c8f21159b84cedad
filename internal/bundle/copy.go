package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentx-labs/confshare/internal/jsontree"
	"github.com/spf13/afero"
)

// excludedNames are never copied as part of bundle content.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

func shouldExclude(name string) bool {
	return excludedNames[name]
}

// A cached bundle keeps its .git directory so it can be pulled later.
func cacheExclude(name string) bool {
	return name == ".DS_Store"
}

// copyTree recursively copies src to dst, skipping names matched by skip,
// symlinks and other special files. It returns the number of files copied.
func copyTree(fs afero.Fs, src, dst string, skip func(string) bool) (int, error) {
	info, err := fs.Stat(src)
	if err != nil {
		return 0, err
	}
	if err := fs.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
		return 0, err
	}

	entries, err := afero.ReadDir(fs, src)
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, entry := range entries {
		if skip(entry.Name()) {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			n, err := copyTree(fs, srcPath, dstPath, skip)
			copied += n
			if err != nil {
				return copied, err
			}
		case entry.Mode().IsRegular():
			if err := copyFile(fs, srcPath, dstPath); err != nil {
				return copied, err
			}
			copied++
		}
	}
	return copied, nil
}

// copyFile copies one file, creating parent directories and preserving
// permissions.
func copyFile(fs afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}
	info, err := fs.Stat(src)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fs, dst, data, info.Mode().Perm())
}

// replaceTree removes dst and copies src in its place.
func replaceTree(fs afero.Fs, src, dst string, skip func(string) bool) (int, error) {
	if err := fs.RemoveAll(dst); err != nil {
		return 0, fmt.Errorf("removing %s: %w", dst, err)
	}
	return copyTree(fs, src, dst, skip)
}

func readJSON(fs afero.Fs, path string) (*jsontree.Value, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return jsontree.Parse(data)
}

func writeJSON(fs afero.Fs, path string, doc *jsontree.Value) error {
	data, err := jsontree.Indent(doc)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}

// CopyTree replaces dst with a copy of the bundle directory src, git
// metadata included. Used when caching a bundle into the share directory.
func CopyTree(fs afero.Fs, src, dst string) (int, error) {
	n, err := replaceTree(fs, src, dst, cacheExclude)
	if err != nil {
		return n, fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return n, nil
}
