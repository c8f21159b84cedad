package bundle

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/confshare/internal/manifest"
)

// Outcome is what happened to one item.
type Outcome string

const (
	Written Outcome = "written"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// Result records the outcome for one item of a batch.
type Result struct {
	Kind    manifest.Kind
	Name    string
	Path    string
	Outcome Outcome
	Note    string
	Err     error
}

// Report accumulates per-item results. A failed item never stops the batch.
type Report struct {
	DryRun  bool
	Results []Result
}

func (r *Report) written(kind manifest.Kind, name, path, note string) {
	r.Results = append(r.Results, Result{Kind: kind, Name: name, Path: path, Outcome: Written, Note: note})
}

func (r *Report) skipped(kind manifest.Kind, name, path, note string, err error) {
	r.Results = append(r.Results, Result{Kind: kind, Name: name, Path: path, Outcome: Skipped, Note: note, Err: err})
}

func (r *Report) failed(kind manifest.Kind, name, path string, err error) {
	r.Results = append(r.Results, Result{Kind: kind, Name: name, Path: path, Outcome: Failed, Err: err})
}

func (r *Report) count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Written returns the number of items written.
func (r *Report) Written() int { return r.count(Written) }

// Skipped returns the number of items left alone.
func (r *Report) Skipped() int { return r.count(Skipped) }

// Failed returns the number of items that failed.
func (r *Report) Failed() int { return r.count(Failed) }

// Err joins every failure, or returns nil when nothing failed.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Outcome == Failed && res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Summary is the one-line written/skipped/failed tally.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d written, %d skipped, %d failed", r.Written(), r.Skipped(), r.Failed())
}

// ContentMissingError reports a selected item that is not in the tree it
// should be read from.
type ContentMissingError struct {
	Kind manifest.Kind
	Name string
	Path string
}

func (e *ContentMissingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q not found at %s", e.Kind, e.Name, e.Path)
}

// IOError wraps a filesystem failure on one path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
