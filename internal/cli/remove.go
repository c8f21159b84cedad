package cli

import (
	"fmt"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/library"
	"github.com/spf13/cobra"
)

var (
	removeYes       bool
	removeKeepCache bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove the files a bundle applied",
	Long: `Delete every file a cached bundle wrote into the trees recorded in its
apply history, then remove the cached bundle unless --keep-cache is set.
Files the bundle skipped or renamed around are left alone. Hooks files lose
only the bundle's definitions; MCP files are deleted whole.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Skip confirmation prompt")
	removeCmd.Flags().BoolVar(&removeKeepCache, "keep-cache", false, "Keep the cached bundle in the share directory")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	lib := library.Open(appFs, paths.ShareDir)
	m, dir, err := lib.Load(args[0])
	if err != nil {
		return err
	}

	applied := bundle.AppliedPaths(appFs, dir, m)
	if len(applied) == 0 {
		fmt.Fprintf(out, "%s has no applied files on record.\n", m.Name)
	} else {
		fmt.Fprintf(out, "Files applied by %s v%s:\n", m.Name, m.Version)
		for _, p := range applied {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}

	question := fmt.Sprintf("Remove %d file(s)", len(applied))
	if !removeKeepCache {
		question += " and the cached bundle"
	}
	if !newPrompter(cmd, removeYes).confirm(question+"?", false) {
		fmt.Fprintln(out, "Remove cancelled.")
		return nil
	}

	env, err := bundle.LoadEnv(appFs, dir)
	if err != nil {
		return err
	}
	report := bundle.Remove(appFs, bundle.RemoveOptions{Bundle: dir, Paths: applied, Env: env})
	printReport(out, report)

	if removeKeepCache {
		m.Apply = nil
		if err := lib.Save(dir, m); err != nil {
			return err
		}
	} else {
		if err := lib.Delete(dir); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Removed %s\n", dir)
	}
	return report.Err()
}
