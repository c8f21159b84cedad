package bundle

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentx-labs/confshare/internal/inventory"
	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/sanitize"
	"github.com/spf13/afero"
)

// ErrBundleExists is returned by Pack when the bundle directory already
// exists and Overwrite is not set.
var ErrBundleExists = errors.New("bundle directory already exists")

// PackOptions controls Pack.
type PackOptions struct {
	Name        string
	Version     string
	Description string
	Author      string
	License     string

	Source string // configuration tree to read from
	Dir    string // bundle directory to create

	Content manifest.ContentSet
	Exclude manifest.ContentSet

	SkipSanitize bool
	Overwrite    bool
	DryRun       bool
	Now          func() time.Time
}

// PackResult describes a finished (or planned) pack.
type PackResult struct {
	Manifest     *manifest.Manifest
	Dir          string
	Report       *Report
	Sensitive    sanitize.Fields
	Placeholders int
}

// Packable lists every item of every kind available under source.
func Packable(fs afero.Fs, source string) (map[manifest.Kind][]string, error) {
	out := make(map[manifest.Kind][]string, len(manifest.Kinds))
	for _, kind := range manifest.Kinds {
		items, err := inventory.Available(fs, source, kind)
		if err != nil {
			return nil, err
		}
		out[kind] = inventory.Names(items)
	}
	return out, nil
}

// Pack copies the selected content of a configuration tree into a new
// bundle directory, redacting sensitive values from hooks and service
// definitions, and writes the manifest. Missing items are reported and
// skipped.
func Pack(fs afero.Fs, opts PackOptions) (*PackResult, error) {
	logger := logging.GetLogger("bundle")
	defer logging.LogOperationStart(logger, "pack")()

	if opts.Name == "" {
		return nil, &manifest.SchemaError{Field: "name", Message: "is required"}
	}
	exists, err := afero.DirExists(fs, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("checking source %s: %w", opts.Source, err)
	}
	if !exists {
		return nil, fmt.Errorf("source %s does not exist", opts.Source)
	}
	if err := prepareDir(fs, opts.Dir, opts.Overwrite, opts.DryRun); err != nil {
		return nil, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	content := opts.Content
	if content == nil {
		content = manifest.NewContentSet()
	}
	exclude := opts.Exclude
	if exclude == nil {
		exclude = manifest.NewContentSet()
	}

	report := &Report{DryRun: opts.DryRun}
	result := &PackResult{Dir: opts.Dir, Report: report, Sensitive: sanitize.Fields{}}
	recorded := manifest.NewContentSet()

	for _, kind := range manifest.Kinds {
		sel := content.Get(kind)
		if sel.Empty() {
			continue
		}

		items, missing, err := inventory.Resolve(fs, opts.Source, kind, sel, exclude.Get(kind))
		if err != nil {
			return nil, err
		}
		for _, name := range missing {
			src := filepath.Join(opts.Source, inventory.RelPath(kind, name))
			report.skipped(kind, name, src, "not found", &ContentMissingError{Kind: kind, Name: name, Path: src})
		}

		var packed []string
		for _, it := range items {
			src := filepath.Join(opts.Source, it.Rel)
			dst := filepath.Join(opts.Dir, it.Rel)

			if kind == manifest.Hooks || kind == manifest.MCP {
				fields, placeholders, err := packJSON(fs, src, dst, opts.SkipSanitize, opts.DryRun)
				if err != nil {
					report.failed(kind, it.Name, dst, err)
					continue
				}
				for k, v := range fields {
					result.Sensitive[k] = v
				}
				result.Placeholders += placeholders
				note := ""
				if placeholders > 0 {
					note = fmt.Sprintf("%d sensitive values replaced", placeholders)
				}
				report.written(kind, it.Name, dst, note)
				packed = append(packed, it.Name)
				continue
			}

			if !opts.DryRun {
				if err := packItem(fs, it, src, dst); err != nil {
					report.failed(kind, it.Name, dst, err)
					continue
				}
			}
			report.written(kind, it.Name, dst, "")
			packed = append(packed, it.Name)
		}

		recorded[kind] = recordedSelection(fs, opts.Source, kind, sel, packed)
	}

	if len(result.Sensitive) > 0 && !opts.SkipSanitize && !opts.DryRun {
		path := filepath.Join(opts.Dir, sanitize.EnvExampleFile)
		data := sanitize.GenerateEnvExample(result.Sensitive)
		if err := afero.WriteFile(fs, path, []byte(data), 0644); err != nil {
			return nil, &IOError{Op: "writing", Path: path, Err: err}
		}
		logger.Info().Int("fields", len(result.Sensitive)).Str("path", path).Msg("wrote env example")
	}

	m := manifest.Create(opts.Name, opts.Version, opts.Description, opts.Author, opts.License)
	m.Metadata.CreatedAt = manifest.At(now())
	m.Metadata.UpdatedAt = m.Metadata.CreatedAt
	m.Content = recorded
	m.Exclude = exclude
	m.Metadata.FileCount = report.Written()
	result.Manifest = m

	if !opts.DryRun {
		if err := manifest.Save(fs, filepath.Join(opts.Dir, manifest.FileName), m); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("bundle", opts.Name).
		Int("written", report.Written()).
		Int("skipped", report.Skipped()).
		Int("failed", report.Failed()).
		Bool("dryRun", opts.DryRun).
		Msg("pack finished")
	return result, nil
}

func prepareDir(fs afero.Fs, dir string, overwrite, dryRun bool) error {
	exists, err := afero.Exists(fs, dir)
	if err != nil {
		return fmt.Errorf("checking %s: %w", dir, err)
	}
	if dryRun {
		return nil
	}
	if exists {
		if !overwrite {
			return fmt.Errorf("%s: %w", dir, ErrBundleExists)
		}
		if err := fs.RemoveAll(dir); err != nil {
			return &IOError{Op: "removing", Path: dir, Err: err}
		}
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "creating", Path: dir, Err: err}
	}
	return nil
}

func packItem(fs afero.Fs, it inventory.Item, src, dst string) error {
	if it.Dir {
		if _, err := copyTree(fs, src, dst, shouldExclude); err != nil {
			return &IOError{Op: "copying", Path: src, Err: err}
		}
		return nil
	}
	if err := copyFile(fs, src, dst); err != nil {
		return &IOError{Op: "copying", Path: src, Err: err}
	}
	return nil
}

// packJSON copies a hooks or service file, redacting sensitive values
// unless skip is set. It returns the detected fields and how many
// placeholders the written document holds.
func packJSON(fs afero.Fs, src, dst string, skip, dryRun bool) (sanitize.Fields, int, error) {
	doc, err := readJSON(fs, src)
	if err != nil {
		return nil, 0, &IOError{Op: "reading", Path: src, Err: err}
	}

	var fields sanitize.Fields
	if !skip {
		fields = sanitize.Detect(doc)
		if len(fields) > 0 {
			doc = sanitize.Sanitize(doc)
		}
	}

	if !dryRun {
		if err := writeJSON(fs, dst, doc); err != nil {
			return nil, 0, &IOError{Op: "writing", Path: dst, Err: err}
		}
	}
	return fields, sanitize.CountPlaceholders(doc), nil
}

// recordedSelection is what the manifest records for one kind: the
// sentinel when everything available was packed, the packed names
// otherwise.
func recordedSelection(fs afero.Fs, source string, kind manifest.Kind, sel manifest.Selection, packed []string) manifest.Selection {
	switch kind {
	case manifest.Hooks, manifest.MCP:
		if len(packed) == 0 {
			return manifest.Selection{}
		}
		return manifest.Select(packed...)
	}
	if sel.All {
		return manifest.SelectAll()
	}
	if len(packed) == 0 {
		return manifest.Selection{}
	}

	available, err := inventory.Available(fs, source, kind)
	if err == nil && sameNames(inventory.Names(available), packed) {
		return manifest.SelectAll()
	}
	return manifest.Select(packed...)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, n := range a {
		seen[n] = true
	}
	for _, n := range b {
		if !seen[n] {
			return false
		}
	}
	return true
}
