package cli

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/library"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/remote"
	"github.com/agentx-labs/confshare/internal/update"
	"github.com/agentx-labs/confshare/internal/versioning"
	"github.com/spf13/cobra"
)

var (
	updateRole       string
	updateCheck      bool
	updateIncrement  string
	updateSetVersion string
	updatePush       bool
	updateApply      bool
)

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Release or fetch a new version of a bundle",
	Long: `As a sharer, bump a bundle's version and optionally commit and push it.
As a user, check whether a newer version is published and optionally pull
it and apply it again to every tree it was applied to.

  confshare update team-tools --role sharer --increment minor --push
  confshare update team-tools --check
  confshare update team-tools --apply`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateRole, "role", "", "user or sharer (default: sharer when the bundle has a repository and --apply/--check are not set)")
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "Only check for a newer published version")
	updateCmd.Flags().StringVar(&updateIncrement, "increment", string(versioning.Patch), "Version part to bump: patch, minor or major")
	updateCmd.Flags().StringVar(&updateSetVersion, "set-version", "", "Set an explicit version instead of incrementing")
	updateCmd.Flags().BoolVar(&updatePush, "push", false, "Commit and push the bumped version")
	updateCmd.Flags().BoolVar(&updateApply, "apply", false, "Pull a newer version and re-apply it")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	lib := library.Open(appFs, paths.ShareDir)
	m, dir, err := lib.Load(args[0])
	if err != nil {
		return err
	}

	role := library.RoleUser
	switch {
	case updateRole != "":
		if role, err = library.ParseRole(updateRole); err != nil {
			return err
		}
	case m.IsPublished() && !updateCheck && !updateApply:
		role = library.RoleSharer
	}

	if role == library.RoleSharer {
		return runSharerUpdate(cmd, lib, dir, m)
	}
	return runUserUpdate(cmd, lib, dir, m)
}

func runSharerUpdate(cmd *cobra.Command, lib *library.Library, dir string, m *manifest.Manifest) error {
	out := cmd.OutOrStdout()
	kind, err := versioning.ParseKind(updateIncrement)
	if err != nil {
		return err
	}
	old, err := update.Bump(m, kind, updateSetVersion, now())
	if err != nil {
		return err
	}
	if err := lib.Save(dir, m); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %s: %s -> %s\n", m.Name, old, m.Version)

	if !updatePush {
		return nil
	}
	if !remote.IsRepo(dir) {
		return fmt.Errorf("%s is not a git repository; run publish first", dir)
	}
	client := gitClient(m.Repository.Type)
	ctx := cmd.Context()
	if err := client.Commit(ctx, dir, update.CommitMessage(m)); err != nil && !errors.Is(err, remote.ErrNothingToCommit) {
		return fmt.Errorf("committing: %w", err)
	}
	branch := currentBranch(dir)
	if err := client.Push(ctx, dir, "origin", branch); err != nil {
		return fmt.Errorf("pushing: %w", err)
	}
	fmt.Fprintf(out, "✓ Pushed %s to origin/%s\n", m.Version, branch)
	return nil
}

func runUserUpdate(cmd *cobra.Command, lib *library.Library, dir string, m *manifest.Manifest) error {
	out := cmd.OutOrStdout()
	if !m.IsPublished() {
		return fmt.Errorf("%s has no repository to update from", m.Name)
	}

	client := gitClient(m.Repository.Type)
	checker := update.NewChecker(client, appFs, paths.CacheDir, update.WithClock(now))
	result, err := checker.Check(cmd.Context(), m, updateApply)
	if err != nil {
		return err
	}
	if !result.UpdateAvailable {
		fmt.Fprintf(out, "✓ %s is up to date (v%s)\n", m.Name, m.Version)
		return nil
	}
	fmt.Fprintf(out, "Update available for %s: %s -> %s\n", m.Name, m.Version, result.LatestVersion)
	if !updateApply {
		fmt.Fprintf(out, "    Run `%s update %s --apply` to install it\n", rootCmd.Name(), m.Name)
		return nil
	}

	if !remote.IsRepo(dir) {
		return fmt.Errorf("%s is not a git checkout; apply the bundle from its URL again", dir)
	}
	records := m.Apply
	ctx := cmd.Context()
	// The cached manifest carries local apply records; let the pull replace it.
	if err := client.Restore(ctx, dir, manifest.FileName); err != nil {
		return fmt.Errorf("discarding local manifest changes: %w", err)
	}
	if err := client.Pull(ctx, dir, "origin", remote.DefaultBranch); err != nil {
		return fmt.Errorf("pulling: %w", err)
	}

	pulled, err := manifest.LoadDir(appFs, dir)
	if err != nil {
		return err
	}
	pulled.Apply = records
	env, err := bundle.LoadEnv(appFs, dir)
	if err != nil {
		return err
	}

	var failed int
	for _, r := range update.Reapply(appFs, dir, pulled, env, now()) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "  ✗ %s: %v\n", r.Target, r.Err)
			continue
		}
		fmt.Fprintf(out, "  ✓ %s: %s\n", r.Target, r.Result.Report.Summary())
	}
	if err := lib.Save(dir, pulled); err != nil {
		return err
	}
	_ = checker.Invalidate(m.Name)

	if failed > 0 {
		return fmt.Errorf("%d target(s) failed to update", failed)
	}
	fmt.Fprintf(out, "✓ %s updated to v%s\n", m.Name, pulled.Version)
	return nil
}

func currentBranch(dir string) string {
	branch, err := remote.CurrentBranch(dir)
	if err != nil || branch == "" {
		return remote.DefaultBranch
	}
	return branch
}
