package update

import (
	"time"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/conflict"
	"github.com/agentx-labs/confshare/internal/ledger"
	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/afero"
)

// ReapplyResult is the outcome of refreshing one ledger target.
type ReapplyResult struct {
	Target string
	Result *bundle.ApplyResult
	Err    error
}

// HooksModeFor is the hooks mode used to refresh m's targets: the mode of
// the first apply record, smart when there is none.
func HooksModeFor(m *manifest.Manifest) manifest.HooksMode {
	records := ledger.RecordsFor(m)
	if len(records) == 0 || records[0].HooksMode == "" {
		return manifest.HooksSmart
	}
	return records[0].HooksMode
}

// Reapply re-materializes a freshly pulled bundle into every target its
// ledger names. Files a record owns are overwritten in place; anything else
// already present is left alone. Records from older tooling, which do not
// list their files, are refreshed with overwrite. Records on m are
// refreshed for each target that succeeds; saving m is up to the caller.
func Reapply(fs afero.Fs, bundleDir string, m *manifest.Manifest, env map[string]string, now time.Time) []ReapplyResult {
	logger := logging.GetLogger("update")
	mode := HooksModeFor(m)

	var results []ReapplyResult
	for _, rec := range ledger.RecordsFor(m) {
		opts := bundle.ApplyOptions{
			Bundle:       bundleDir,
			Target:       rec.Target,
			Content:      rec.Content,
			HooksMode:    mode,
			ConflictMode: conflict.Overwrite,
			Env:          env,
			Now:          func() time.Time { return now },
		}
		if rec.Tracked() {
			opts.ConflictMode = conflict.Skip
			opts.Owned = bundle.OwnedPaths(rec)
		}

		res, err := bundle.Apply(fs, opts)
		if err == nil {
			err = res.Report.Err()
		}
		results = append(results, ReapplyResult{Target: rec.Target, Result: res, Err: err})
		if res == nil {
			logger.Error().Err(err).Str("target", rec.Target).Msg("reapply failed")
			continue
		}
		ledger.Record(m, ledger.Entry{
			Target:    rec.Target,
			Content:   res.Record.Content,
			Exclude:   m.Exclude,
			HooksMode: mode,
			Files:     res.Record.Files,
		}, now)
	}
	return results
}
