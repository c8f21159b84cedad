package ledger

import (
	"path/filepath"
	"time"

	"github.com/agentx-labs/confshare/internal/manifest"
)

// Entry is the input for recording one application of a bundle. Content and
// Files describe what was actually written, not what was requested.
type Entry struct {
	Target    string
	Content   manifest.ContentSet
	Exclude   manifest.ContentSet
	HooksMode manifest.HooksMode
	Files     []manifest.AppliedFile
}

// Ledger is an ordered view over a manifest's apply records keyed by
// cleaned target root. Mutations are written straight through to the
// manifest.
type Ledger struct {
	m     *manifest.Manifest
	index map[string]int
}

// Open builds a ledger over m's apply records.
func Open(m *manifest.Manifest) *Ledger {
	l := &Ledger{m: m}
	l.reindex()
	return l
}

func (l *Ledger) reindex() {
	l.index = make(map[string]int, len(l.m.Apply))
	for i, rec := range l.m.Apply {
		l.index[Key(rec.Target)] = i
	}
}

// Key normalizes a target root so equivalent spellings share one record.
func Key(target string) string {
	if target == "" {
		return ""
	}
	return filepath.Clean(target)
}

// Record replaces any record for e.Target with a new one stamped at now
// and the manifest's current version, appends it, and bumps the manifest's
// updated_at. Files and content a tracked earlier record for the same
// target owned are carried over, since they are still the bundle's.
func (l *Ledger) Record(e Entry, now time.Time) manifest.ApplyRecord {
	content := orEmpty(e.Content)
	files := append([]manifest.AppliedFile{}, e.Files...)
	if prev, ok := l.Lookup(e.Target); ok && prev.Tracked() {
		content = unionContent(prev.Content, content)
		files = unionFiles(prev.Files, files)
	}
	l.Forget(e.Target)

	rec := manifest.ApplyRecord{
		Target:    Key(e.Target),
		Content:   content,
		Exclude:   orEmpty(e.Exclude),
		HooksMode: e.HooksMode,
		AppliedAt: manifest.At(now),
		Version:   l.m.Version,
		Files:     files,
	}
	l.m.Apply = append(l.m.Apply, rec)
	l.index[Key(e.Target)] = len(l.m.Apply) - 1
	l.m.Metadata.UpdatedAt = manifest.At(now)
	return rec
}

// Forget drops every record for target and reports whether one existed.
func (l *Ledger) Forget(target string) bool {
	key := Key(target)
	if _, ok := l.index[key]; !ok {
		return false
	}
	kept := make([]manifest.ApplyRecord, 0, len(l.m.Apply))
	for _, rec := range l.m.Apply {
		if Key(rec.Target) != key {
			kept = append(kept, rec)
		}
	}
	l.m.Apply = kept
	l.reindex()
	return true
}

// Lookup returns the record for target.
func (l *Ledger) Lookup(target string) (manifest.ApplyRecord, bool) {
	i, ok := l.index[Key(target)]
	if !ok {
		return manifest.ApplyRecord{}, false
	}
	return l.m.Apply[i], true
}

// Records returns the records oldest first. A re-applied target sits at
// the end.
func (l *Ledger) Records() []manifest.ApplyRecord {
	out := make([]manifest.ApplyRecord, len(l.m.Apply))
	copy(out, l.m.Apply)
	return out
}

// Targets lists the distinct target roots in record order.
func (l *Ledger) Targets() []string {
	targets := make([]string, 0, len(l.m.Apply))
	for _, rec := range l.m.Apply {
		targets = append(targets, rec.Target)
	}
	return targets
}

// Resolver expands one kind's selection, minus its exclusions, into paths
// relative to a target root. It is only consulted for untracked records.
type Resolver func(kind manifest.Kind, sel, exclude manifest.Selection) []string

// AppliedPaths lists every file or directory the records say was written,
// joined onto each record's target root. Tracked records contribute their
// files; untracked ones are expanded through resolve. Paths that would
// leave their target are dropped. Paths are distinct and follow record
// order.
func (l *Ledger) AppliedPaths(resolve Resolver) []string {
	var paths []string
	seen := map[string]bool{}
	add := func(target, rel string) {
		if !filepath.IsLocal(rel) {
			return
		}
		p := filepath.Join(target, rel)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, rec := range l.m.Apply {
		if rec.Tracked() {
			for _, f := range rec.Files {
				add(rec.Target, f.Path)
			}
			continue
		}
		for _, kind := range manifest.Kinds {
			sel := rec.Content.Get(kind)
			if sel.Empty() {
				continue
			}
			for _, rel := range resolve(kind, sel, rec.Exclude.Get(kind)) {
				add(rec.Target, rel)
			}
		}
	}
	return paths
}

func unionFiles(prev, next []manifest.AppliedFile) []manifest.AppliedFile {
	out := append([]manifest.AppliedFile{}, prev...)
	for _, f := range next {
		dup := false
		for _, p := range out {
			if p.Path == f.Path {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	return out
}

func unionContent(prev, next manifest.ContentSet) manifest.ContentSet {
	out := manifest.NewContentSet()
	for _, kind := range manifest.Kinds {
		a, b := prev.Get(kind), next.Get(kind)
		switch {
		case a.All || b.All:
			out[kind] = manifest.SelectAll()
		case a.Empty() && b.Empty():
			continue
		default:
			items := append([]string{}, a.Items...)
			for _, name := range b.Items {
				if !a.Contains(name) {
					items = append(items, name)
				}
			}
			out[kind] = manifest.Select(items...)
		}
	}
	return out
}

func orEmpty(c manifest.ContentSet) manifest.ContentSet {
	if c == nil {
		return manifest.NewContentSet()
	}
	return c
}

// Record is a convenience wrapper around Open(m).Record.
func Record(m *manifest.Manifest, e Entry, now time.Time) manifest.ApplyRecord {
	return Open(m).Record(e, now)
}

// RecordsFor returns m's apply records oldest first.
func RecordsFor(m *manifest.Manifest) []manifest.ApplyRecord {
	return Open(m).Records()
}
