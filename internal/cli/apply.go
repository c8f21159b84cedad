package cli

import (
	"fmt"
	"path/filepath"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/config"
	"github.com/agentx-labs/confshare/internal/conflict"
	"github.com/agentx-labs/confshare/internal/ledger"
	"github.com/agentx-labs/confshare/internal/library"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/remote"
	"github.com/agentx-labs/confshare/internal/sanitize"
	"github.com/spf13/cobra"
)

var (
	applyTarget         string
	applyDownload       bool
	applyCheckConflicts bool
	applyHooksMode      string
	applyConflictMode   string
	applyDryRun         bool
	applyYes            bool
	applyContent        contentFlags
)

var applyCmd = &cobra.Command{
	Use:   "apply <source>",
	Short: "Apply a bundle to a configuration tree",
	Long: `Validate a bundle (a local directory or a git URL) and write its content
into the target configuration tree. Existing files are handled by the
conflict mode; hooks are merged, replaced or skipped by the hooks mode.
The bundle is cached in the share directory with a record of where it
was applied.

  confshare apply https://github.com/acme/team-tools.git
  confshare apply ./team-tools --check-conflicts
  confshare apply ./team-tools --commands all --conflict-mode rename`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyTarget, "target", "t", "", "Configuration tree to apply to (default: claude_dir)")
	applyCmd.Flags().BoolVar(&applyDownload, "download", false, "Only fetch and validate the bundle")
	applyCmd.Flags().BoolVar(&applyCheckConflicts, "check-conflicts", false, "Only list files that already exist in the target")
	applyCmd.Flags().StringVar(&applyHooksMode, "hooks-mode", "", "How to handle hooks: smart, replace or skip (default: hooks_mode)")
	applyCmd.Flags().StringVar(&applyConflictMode, "conflict-mode", "", "How to handle existing files: ask, overwrite, skip or rename (default: conflict_mode)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show what would be written without writing")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Answer yes to overwrite questions")
	applyContent.register(applyCmd)
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	target := paths.ClaudeDir
	if applyTarget != "" {
		target = config.ExpandHome(applyTarget, paths.Home)
	}

	hooksMode := cfg.HooksMode()
	if applyHooksMode != "" {
		m, err := manifest.ParseHooksMode(applyHooksMode)
		if err != nil {
			return err
		}
		hooksMode = m
	}
	mode := cfg.ConflictMode()
	if applyConflictMode != "" {
		m, err := conflict.ParseMode(applyConflictMode)
		if err != nil {
			return err
		}
		mode = m
	}

	dir, err := fetchBundle(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Validating %s\n", dir)
	if printProblems(out, bundle.Check(appFs, dir, false)) {
		return fmt.Errorf("bundle at %s is invalid", dir)
	}
	m, err := bundle.LoadValid(appFs, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %s v%s\n", m.Name, m.Version)

	if applyDownload {
		fmt.Fprintf(out, "Bundle available at %s\n", dir)
		return nil
	}

	content := applyContent.set()
	if applyCheckConflicts {
		return printConflicts(cmd, dir, target, content, m)
	}

	env, err := bundle.LoadEnv(appFs, dir)
	if err != nil {
		return err
	}
	p := newPrompter(cmd, applyYes)
	res, err := bundle.Apply(appFs, bundle.ApplyOptions{
		Bundle:       dir,
		Target:       target,
		Content:      content,
		HooksMode:    hooksMode,
		ConflictMode: mode,
		Decider:      p.decider(),
		Env:          env,
		DryRun:       applyDryRun,
	})
	if err != nil {
		return fmt.Errorf("applying %s: %w", m.Name, err)
	}

	fmt.Fprintf(out, "Applying %s v%s to %s\n", m.Name, m.Version, target)
	printReport(out, res.Report)

	if !applyDryRun {
		cached, err := cacheApplied(dir, res)
		if err != nil {
			return fmt.Errorf("caching %s: %w", m.Name, err)
		}
		fmt.Fprintf(out, "Cached in %s\n", cached)
	}
	printEnvGuidance(cmd, res, target)
	return res.Report.Err()
}

// fetchBundle returns a local directory holding the bundle: git URLs are
// cloned into the download directory, local paths are used in place.
func fetchBundle(cmd *cobra.Command, source string) (string, error) {
	if !remote.IsURL(source) {
		dir := config.ExpandHome(source, paths.Home)
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", source, err)
		}
		return abs, nil
	}

	dir := filepath.Join(paths.DownloadDir, remote.RepoName(source))
	if err := appFs.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clearing %s: %w", dir, err)
	}
	if err := appFs.MkdirAll(paths.DownloadDir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", paths.DownloadDir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Downloading %s\n", remote.Redact(source, ""))
	client := gitClient(remote.TypeOf(source))
	if err := client.Clone(cmd.Context(), source, dir, ""); err != nil {
		return "", err
	}
	return dir, nil
}

func gitClient(t manifest.RepoType) *remote.Client {
	return remote.NewClient(remote.WithTimeout(cfg.RemoteTimeout()), remote.WithToken(cfg.Token(t)))
}

// cacheApplied stores the bundle in the library, keeping the records of
// earlier applications of the same bundle.
func cacheApplied(dir string, res *bundle.ApplyResult) (string, error) {
	lib := library.Open(appFs, paths.ShareDir)
	m := res.Manifest
	if old, _, err := lib.Load(m.Name); err == nil {
		m.Apply = old.Apply
		rec := res.Record
		ledger.Record(m, ledger.Entry{
			Target:    rec.Target,
			Content:   rec.Content,
			Exclude:   rec.Exclude,
			HooksMode: rec.HooksMode,
			Files:     rec.Files,
		}, rec.AppliedAt.Time)
	}
	return lib.Cache(dir, m)
}

func printConflicts(cmd *cobra.Command, dir, target string, content manifest.ContentSet, m *manifest.Manifest) error {
	if content == nil {
		content = m.Content
	}
	conflicts, err := conflict.Scan(appFs, dir, target, content, m.Exclude)
	if err != nil {
		return fmt.Errorf("checking conflicts: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(conflicts) == 0 {
		fmt.Fprintf(out, "✓ No conflicts with %s\n", target)
		return nil
	}
	fmt.Fprintf(out, "%d file(s) already exist in %s:\n", len(conflicts), target)
	for _, c := range conflicts {
		fmt.Fprintf(out, "  %s/%s  %s\n", c.Kind, c.Name, c.Path)
	}
	return nil
}

func printEnvGuidance(cmd *cobra.Command, res *bundle.ApplyResult, target string) {
	if len(res.EnvKeys) == 0 && res.Placeholders == 0 {
		return
	}
	out := cmd.OutOrStdout()
	if len(res.EnvKeys) > 0 {
		fmt.Fprintf(out, "\nThis bundle expects values for (see %s):\n", sanitize.EnvExampleFile)
		for _, key := range res.EnvKeys {
			fmt.Fprintf(out, "  %s\n", key)
		}
	}
	if res.Placeholders > 0 {
		fmt.Fprintf(out, "%d placeholder(s) remain in %s; replace them or put the values in the bundle's %s and apply again.\n",
			res.Placeholders, target, bundle.EnvFile)
	}
}
