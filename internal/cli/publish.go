package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/config"
	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/remote"
	"github.com/spf13/cobra"
)

var (
	publishRepo       string
	publishRepoType   string
	publishCreateRepo bool
	publishPrivate    bool
	publishToken      string
	publishCommitMsg  string
	publishTag        bool
	publishPushOnly   bool
)

var publishCmd = &cobra.Command{
	Use:   "publish <path>",
	Short: "Publish a bundle to a git repository",
	Long: `Validate a bundle, make sure its repository exists (creating it on
GitHub with --create-repo), then commit, push and tag v<version>.

The token comes from --token, or the github_token/gitlab_token settings,
or GITHUB_TOKEN/GITLAB_TOKEN. It is never written to the repository
configuration or to logs.

  confshare publish ~/.confshare/plugins/team-tools --repo https://github.com/acme/team-tools.git --create-repo
  confshare publish ./team-tools --push-only`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishRepo, "repo", "", "Repository URL (default: the manifest's repository)")
	publishCmd.Flags().StringVar(&publishRepoType, "repo-type", "", "github, gitlab or custom (default: guessed from the URL)")
	publishCmd.Flags().BoolVar(&publishCreateRepo, "create-repo", false, "Create the repository when it does not exist (GitHub only)")
	publishCmd.Flags().BoolVar(&publishPrivate, "private", false, "Create the repository as private")
	publishCmd.Flags().StringVar(&publishToken, "token", "", "Access token for the hosting service")
	publishCmd.Flags().StringVar(&publishCommitMsg, "commit-msg", "", "Commit message (default: Release/Update <name> v<version>)")
	publishCmd.Flags().BoolVar(&publishTag, "tag", true, "Tag the release as v<version>")
	publishCmd.Flags().BoolVar(&publishPushOnly, "push-only", false, "Only commit and push; skip repository checks and tagging")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	logger := logging.GetLogger("publish")
	dir := config.ExpandHome(args[0], paths.Home)

	if printProblems(out, bundle.Check(appFs, dir, false)) {
		return fmt.Errorf("bundle at %s is invalid", dir)
	}
	m, err := bundle.LoadValid(appFs, dir)
	if err != nil {
		return err
	}

	repoURL := publishRepo
	if repoURL == "" {
		repoURL = m.Repository.URL
	}
	if repoURL == "" {
		return fmt.Errorf("--repo is required for a bundle without a repository")
	}
	repoType := remote.TypeOf(repoURL)
	if publishRepoType != "" {
		if repoType, err = manifest.ParseRepoType(publishRepoType); err != nil {
			return err
		}
	}
	token := publishToken
	if token == "" {
		token = cfg.Token(repoType)
	}
	repo := manifest.Repository{Type: repoType, URL: repoURL}
	client := remote.NewClient(remote.WithTimeout(cfg.RemoteTimeout()), remote.WithToken(token))

	if !publishPushOnly {
		host := remote.NewHost(remote.WithHostTokens(token, token), remote.WithGitClient(client))
		exists, err := host.Exists(ctx, repo)
		if err != nil {
			return err
		}
		if !exists {
			if !publishCreateRepo {
				return fmt.Errorf("repository %s does not exist (pass --create-repo to create it)", remote.Redact(repoURL, token))
			}
			p, err := remote.ParseRepoURL(repoURL)
			if err != nil {
				return err
			}
			cloneURL, err := host.Create(ctx, repoType, p.Name, publishPrivate, m.Description)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Created %s\n", cloneURL)
		}

		m.Repository = repo
		m.Metadata.UpdatedAt = manifest.At(now())
		if err := manifest.Save(appFs, filepath.Join(dir, manifest.FileName), m); err != nil {
			return err
		}
	}

	firstRelease := !remote.IsRepo(dir)
	if err := remote.Init(dir); err != nil {
		return err
	}
	if err := remote.AddRemote(dir, "origin", repoURL); err != nil {
		return err
	}
	if !firstRelease {
		if tags, err := remote.Tags(dir); err == nil && len(tags) == 0 {
			firstRelease = true
		}
	}

	msg := publishCommitMsg
	if msg == "" {
		if firstRelease {
			msg = fmt.Sprintf("Release %s v%s", m.Name, m.Version)
		} else {
			msg = fmt.Sprintf("Update %s to v%s", m.Name, m.Version)
		}
	}
	switch err := client.Commit(ctx, dir, msg); {
	case errors.Is(err, remote.ErrNothingToCommit):
		fmt.Fprintln(out, "Nothing new to commit")
	case err != nil:
		return fmt.Errorf("committing: %w", err)
	default:
		fmt.Fprintf(out, "✓ Committed: %s\n", msg)
	}

	branch := currentBranch(dir)
	if err := client.Push(ctx, dir, "origin", branch); err != nil {
		return fmt.Errorf("pushing: %w", err)
	}
	fmt.Fprintf(out, "✓ Pushed to %s (%s)\n", remote.Redact(repoURL, token), branch)

	if publishPushOnly || !publishTag {
		return nil
	}
	tag := "v" + m.Version
	if err := client.Tag(ctx, dir, tag, "Release "+m.Version); err != nil {
		logger.Warn().Err(err).Str("tag", tag).Msg("tagging failed")
		fmt.Fprintf(out, "Warning: could not create tag %s (does it already exist?)\n", tag)
		return nil
	}
	if err := client.PushTags(ctx, dir, "origin"); err != nil {
		return fmt.Errorf("pushing tags: %w", err)
	}
	fmt.Fprintf(out, "✓ Tagged %s\n", tag)
	return nil
}
