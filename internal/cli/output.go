package cli

import (
	"fmt"
	"io"

	"github.com/agentx-labs/confshare/internal/bundle"
)

// printReport writes one line per item followed by the summary.
func printReport(w io.Writer, r *bundle.Report) {
	for _, res := range r.Results {
		mark := "✓"
		switch res.Outcome {
		case bundle.Skipped:
			mark = "-"
		case bundle.Failed:
			mark = "✗"
		}
		line := fmt.Sprintf("  %s %s/%s", mark, res.Kind, res.Name)
		if res.Note != "" {
			line += " (" + res.Note + ")"
		}
		if res.Err != nil && res.Outcome == bundle.Failed {
			line += ": " + res.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	prefix := ""
	if r.DryRun {
		prefix = "[dry run] "
	}
	fmt.Fprintf(w, "%s%s\n", prefix, r.Summary())
}

// printProblems lists validation errors and reports whether there were any.
func printProblems(w io.Writer, errs []error) bool {
	for _, err := range errs {
		fmt.Fprintf(w, "  ✗ %v\n", err)
	}
	return len(errs) > 0
}
