package manifest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentx-labs/confshare/internal/jsontree"
	"github.com/agentx-labs/confshare/internal/versioning"
	"github.com/spf13/afero"
)

// legacyNameKey is the member older bundles used for the manifest name.
const legacyNameKey = "plugin"

// Create builds a manifest with every structural default filled in.
// Empty version and license fall back to 1.0.0 and MIT.
func Create(name, version, description, author, license string) *Manifest {
	if version == "" {
		version = versioning.Default
	}
	if license == "" {
		license = DefaultLicense
	}
	now := At(time.Now())
	return &Manifest{
		Name:        name,
		Version:     version,
		Description: description,
		Author:      author,
		License:     license,
		Repository:  Repository{},
		Content:     NewContentSet(),
		Exclude:     NewContentSet(),
		Apply:       []ApplyRecord{},
		Metadata: Metadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Decode converts a raw manifest document into a Manifest. A legacy
// "plugin" member supplies the name when "name" is absent.
func Decode(doc *jsontree.Value) (*Manifest, error) {
	if !doc.IsObject() {
		return nil, &SchemaError{Message: "manifest must be a JSON object"}
	}
	var m Manifest
	if err := jsontree.Into(doc, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if m.Name == "" {
		if legacy, ok := doc.GetString(legacyNameKey); ok {
			m.Name = legacy
		}
	}
	if m.Content == nil {
		m.Content = NewContentSet()
	}
	if m.Exclude == nil {
		m.Exclude = NewContentSet()
	}
	if m.Apply == nil {
		m.Apply = []ApplyRecord{}
	}
	return &m, nil
}

// LoadDocument reads and parses a manifest file without interpreting it.
func LoadDocument(fs afero.Fs, path string) (*jsontree.Value, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	doc, err := jsontree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return doc, nil
}

// Load reads a manifest file.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	doc, err := LoadDocument(fs, path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}
	return m, nil
}

// LoadDir reads the manifest at the root of a bundle directory.
func LoadDir(fs afero.Fs, dir string) (*Manifest, error) {
	return Load(fs, filepath.Join(dir, FileName))
}

// Save writes the manifest whole with two-space indentation.
func Save(fs afero.Fs, path string, m *Manifest) error {
	if m.Apply == nil {
		m.Apply = []ApplyRecord{}
	}
	doc, err := jsontree.From(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return SaveDocument(fs, path, doc)
}

// SaveDocument writes a raw manifest document through a temporary file in
// the same directory so readers never observe a partial file.
func SaveDocument(fs afero.Fs, path string, doc *jsontree.Value) error {
	data, err := jsontree.Indent(doc)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("replacing manifest %s: %w", path, err)
	}
	return nil
}

// Exists reports whether dir holds a manifest file.
func Exists(fs afero.Fs, dir string) bool {
	info, err := fs.Stat(filepath.Join(dir, FileName))
	return err == nil && !info.IsDir()
}
