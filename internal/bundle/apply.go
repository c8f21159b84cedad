package bundle

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/agentx-labs/confshare/internal/conflict"
	"github.com/agentx-labs/confshare/internal/hooks"
	"github.com/agentx-labs/confshare/internal/inventory"
	"github.com/agentx-labs/confshare/internal/jsontree"
	"github.com/agentx-labs/confshare/internal/ledger"
	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/sanitize"
	"github.com/spf13/afero"
)

// EnvFile holds real values for a bundle's placeholders. It is never packed.
const EnvFile = ".env"

// Decider answers the yes/no overwrite question raised under ask mode.
type Decider interface {
	Overwrite(path string) (bool, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(path string) (bool, error)

func (f DeciderFunc) Overwrite(path string) (bool, error) { return f(path) }

// ApplyOptions controls Apply.
type ApplyOptions struct {
	Bundle string // bundle directory holding the manifest
	Target string // configuration tree to write into

	// Content narrows what is applied; nil applies the manifest's content.
	Content manifest.ContentSet

	HooksMode    manifest.HooksMode
	ConflictMode conflict.Mode
	Decider      Decider

	// Env binds placeholder names to real values for hooks and service
	// files. Unbound placeholders are written as-is.
	Env map[string]string

	// Owned maps item paths, relative to the bundle, to where an earlier
	// apply wrote them, relative to the target. Owned items are written back
	// to that path and always overwritten.
	Owned map[string]string

	DryRun bool
	Now    func() time.Time
}

// ApplyResult describes a finished (or planned) apply.
type ApplyResult struct {
	Manifest *manifest.Manifest
	Report   *Report
	Record   manifest.ApplyRecord

	// EnvKeys are the variables the bundle's .env.example asks for.
	EnvKeys []string
	// Placeholders counts unresolved ${NAME} values left in the target's
	// hooks and service files.
	Placeholders int
}

// Apply validates a bundle and writes its selected content into the target
// tree, resolving conflicts per item and merging hooks according to the
// hooks mode. The returned manifest carries a fresh apply record; saving it
// is up to the caller. Per-item failures are in the report.
func Apply(fs afero.Fs, opts ApplyOptions) (*ApplyResult, error) {
	logger := logging.GetLogger("bundle")
	defer logging.LogOperationStart(logger, "apply")()

	m, err := LoadValid(fs, opts.Bundle)
	if err != nil {
		return nil, err
	}

	hooksMode := opts.HooksMode
	if hooksMode == "" {
		hooksMode = manifest.HooksSmart
	}
	mode := opts.ConflictMode
	if mode == "" {
		mode = conflict.Ask
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	content := opts.Content
	if content == nil {
		content = m.Content
	}

	if !opts.DryRun {
		if err := fs.MkdirAll(opts.Target, 0755); err != nil {
			return nil, &IOError{Op: "creating", Path: opts.Target, Err: err}
		}
	}

	a := &applier{fs: fs, opts: opts, mode: mode, report: &Report{DryRun: opts.DryRun}}
	for _, kind := range manifest.Kinds {
		sel := content.Get(kind)
		if sel.Empty() {
			continue
		}

		items, missing, err := inventory.Resolve(fs, opts.Bundle, kind, sel, m.Exclude.Get(kind))
		if err != nil {
			return nil, err
		}
		for _, name := range missing {
			src := filepath.Join(opts.Bundle, inventory.RelPath(kind, name))
			a.report.skipped(kind, name, src, "not in bundle", &ContentMissingError{Kind: kind, Name: name, Path: src})
		}
		for _, it := range items {
			if kind == manifest.Hooks {
				a.applyHooks(it, hooksMode)
				continue
			}
			a.applyItem(it)
		}
	}

	result := &ApplyResult{Manifest: m, Report: a.report}
	if !opts.DryRun {
		written, files := appliedContent(content, a.report, opts.Target)
		result.Record = ledger.Record(m, ledger.Entry{
			Target:    opts.Target,
			Content:   written,
			Exclude:   m.Exclude,
			HooksMode: hooksMode,
			Files:     files,
		}, now())
		result.Placeholders = TargetPlaceholders(fs, opts.Target)
	}
	result.EnvKeys = EnvKeys(fs, opts.Bundle)

	logger.Info().
		Str("bundle", m.Name).
		Str("target", opts.Target).
		Str("conflictMode", string(mode)).
		Str("hooksMode", string(hooksMode)).
		Int("written", a.report.Written()).
		Int("skipped", a.report.Skipped()).
		Int("failed", a.report.Failed()).
		Msg("apply finished")
	return result, nil
}

// LoadValid reads a bundle's manifest and rejects it with every schema
// problem when it is not valid.
func LoadValid(fs afero.Fs, dir string) (*manifest.Manifest, error) {
	path := filepath.Join(dir, manifest.FileName)
	doc, err := manifest.LoadDocument(fs, path)
	if err != nil {
		return nil, err
	}
	if errs := manifest.Validate(doc, false); len(errs) > 0 {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, errors.Join(errs...))
	}
	m, err := manifest.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}
	return m, nil
}

type applier struct {
	fs     afero.Fs
	opts   ApplyOptions
	mode   conflict.Mode
	report *Report
}

// decide resolves dst under the conflict mode and, under ask, consults the
// decider. ok is false when the item should not be written.
func (a *applier) decide(kind manifest.Kind, name, dst string, mode conflict.Mode) (path string, ok bool) {
	d, err := conflict.Resolve(a.fs, dst, mode)
	if err != nil {
		a.report.failed(kind, name, dst, err)
		return "", false
	}

	switch d.Action {
	case conflict.Leave:
		a.report.skipped(kind, name, dst, "already exists", nil)
		return "", false
	case conflict.NeedsAnswer:
		if a.opts.Decider == nil {
			a.report.failed(kind, name, dst, &conflict.ConflictError{Path: dst})
			return "", false
		}
		yes, err := a.opts.Decider.Overwrite(dst)
		if err != nil {
			a.report.failed(kind, name, dst, err)
			return "", false
		}
		if !yes {
			a.report.skipped(kind, name, dst, "declined", nil)
			return "", false
		}
		return dst, true
	}
	return d.Path, true
}

func (a *applier) applyItem(it inventory.Item) {
	src := filepath.Join(a.opts.Bundle, it.Rel)
	want := filepath.Join(a.opts.Target, it.Rel)

	dst, mode := want, a.mode
	if rel, ok := a.opts.Owned[it.Rel]; ok {
		dst, mode = filepath.Join(a.opts.Target, rel), conflict.Overwrite
	}
	path, ok := a.decide(it.Kind, it.Name, dst, mode)
	if !ok {
		return
	}
	note := ""
	if path != want {
		note = "renamed to " + filepath.Base(path)
	}
	if a.opts.DryRun {
		a.report.written(it.Kind, it.Name, path, note)
		return
	}

	var err error
	switch {
	case it.Dir:
		_, err = replaceTree(a.fs, src, path, shouldExclude)
	case it.Kind == manifest.MCP:
		err = a.writeRestored(src, path)
	default:
		err = copyFile(a.fs, src, path)
	}
	if err != nil {
		a.report.failed(it.Kind, it.Name, path, &IOError{Op: "writing", Path: path, Err: err})
		return
	}
	a.report.written(it.Kind, it.Name, path, note)
}

func (a *applier) applyHooks(it inventory.Item, mode manifest.HooksMode) {
	src := filepath.Join(a.opts.Bundle, it.Rel)
	dst := filepath.Join(a.opts.Target, it.Rel)

	switch mode {
	case manifest.HooksSkip:
		a.report.skipped(it.Kind, it.Name, dst, "hooks mode skip", nil)
		return
	case manifest.HooksReplace:
		if !a.opts.DryRun {
			if err := a.writeRestored(src, dst); err != nil {
				a.report.failed(it.Kind, it.Name, dst, &IOError{Op: "writing", Path: dst, Err: err})
				return
			}
		}
		a.report.written(it.Kind, it.Name, dst, "replaced")
		return
	}

	incoming, err := readJSON(a.fs, src)
	if err != nil {
		a.report.failed(it.Kind, it.Name, src, &IOError{Op: "reading", Path: src, Err: err})
		return
	}
	existing, err := readJSON(a.fs, dst)
	switch {
	case isNotExist(err):
		existing = jsontree.NewObject()
	case err != nil:
		a.report.failed(it.Kind, it.Name, dst, &IOError{Op: "reading", Path: dst, Err: err})
		return
	}

	merged := hooks.Merge(existing, a.restore(incoming))
	if !a.opts.DryRun {
		if err := writeJSON(a.fs, dst, merged); err != nil {
			a.report.failed(it.Kind, it.Name, dst, &IOError{Op: "writing", Path: dst, Err: err})
			return
		}
	}
	a.report.written(it.Kind, it.Name, dst, "merged")
}

func (a *applier) restore(doc *jsontree.Value) *jsontree.Value {
	if len(a.opts.Env) == 0 {
		return doc
	}
	return sanitize.Restore(doc, a.opts.Env)
}

func (a *applier) writeRestored(src, dst string) error {
	if len(a.opts.Env) == 0 {
		return copyFile(a.fs, src, dst)
	}
	doc, err := readJSON(a.fs, src)
	if err != nil {
		return err
	}
	return writeJSON(a.fs, dst, a.restore(doc))
}

// appliedContent derives what an apply actually wrote from its report: the
// files, and per kind the written names, or "all" when an "all" selection
// was written without anything held back.
func appliedContent(requested manifest.ContentSet, report *Report, target string) (manifest.ContentSet, []manifest.AppliedFile) {
	root := filepath.Clean(target)
	names := map[manifest.Kind][]string{}
	held := map[manifest.Kind]bool{}
	files := []manifest.AppliedFile{}

	for _, res := range report.Results {
		if res.Outcome != Written {
			held[res.Kind] = true
			continue
		}
		rel, err := filepath.Rel(root, res.Path)
		if err != nil || !filepath.IsLocal(rel) {
			held[res.Kind] = true
			continue
		}
		names[res.Kind] = append(names[res.Kind], res.Name)
		files = append(files, manifest.AppliedFile{Kind: res.Kind, Name: res.Name, Path: filepath.ToSlash(rel)})
	}

	written := manifest.NewContentSet()
	for _, kind := range manifest.Kinds {
		switch {
		case requested.Get(kind).All && !held[kind]:
			written[kind] = manifest.SelectAll()
		case len(names[kind]) > 0:
			written[kind] = manifest.Select(names[kind]...)
		}
	}
	return written, files
}

// OwnedPaths maps the items a tracked record wrote to where it wrote them,
// in the form ApplyOptions.Owned expects.
func OwnedPaths(rec manifest.ApplyRecord) map[string]string {
	owned := make(map[string]string, len(rec.Files))
	for _, f := range rec.Files {
		if !filepath.IsLocal(filepath.FromSlash(f.Path)) {
			continue
		}
		switch f.Kind {
		case manifest.Commands, manifest.Agents, manifest.Skills:
			if manifest.CheckItemName(f.Name) != nil {
				continue
			}
		}
		owned[inventory.RelPath(f.Kind, f.Name)] = filepath.FromSlash(f.Path)
	}
	return owned
}

// LoadEnv reads placeholder values from a bundle's .env file. A missing
// file yields no values.
func LoadEnv(fs afero.Fs, bundleDir string) (map[string]string, error) {
	path := filepath.Join(bundleDir, EnvFile)
	f, err := fs.Open(path)
	if isNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "opening", Path: path, Err: err}
	}
	defer f.Close()
	return sanitize.ParseEnvExample(f)
}

// EnvKeys lists, sorted, the variables a bundle's .env.example declares.
func EnvKeys(fs afero.Fs, bundleDir string) []string {
	f, err := fs.Open(filepath.Join(bundleDir, sanitize.EnvExampleFile))
	if err != nil {
		return nil
	}
	defer f.Close()

	vars, err := sanitize.ParseEnvExample(f)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TargetPlaceholders counts ${NAME} values left in a tree's hooks and
// service files.
func TargetPlaceholders(fs afero.Fs, target string) int {
	n := 0
	for _, name := range []string{manifest.HooksFile, manifest.MCPFile} {
		doc, err := readJSON(fs, filepath.Join(target, name))
		if err != nil {
			continue
		}
		n += sanitize.CountPlaceholders(doc)
	}
	return n
}
