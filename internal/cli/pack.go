package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/config"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/sanitize"
	"github.com/agentx-labs/confshare/internal/versioning"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	packName         string
	packVersion      string
	packSource       string
	packOutput       string
	packExclude      string
	packDescription  string
	packAuthor       string
	packLicense      string
	packList         bool
	packDryRun       bool
	packSkipSanitize bool
	packYes          bool
	packContent      contentFlags
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack configuration into a shareable bundle",
	Long: `Copy selected commands, agents, skills, hooks and MCP servers from a
configuration tree into a new bundle directory. Secrets found in hooks and
MCP definitions are replaced with ${NAME} placeholders and listed in
.env.example.

  confshare pack --list
  confshare pack --name team-tools --commands all --agents reviewer --mcp`,
	Args: cobra.NoArgs,
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringVar(&packName, "name", "", "Bundle name (required)")
	packCmd.Flags().StringVar(&packVersion, "version", versioning.Default, "Bundle version")
	packCmd.Flags().StringVar(&packSource, "source", "", "Configuration tree to pack (default: claude_dir)")
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "Directory to create the bundle in (default: share_dir)")
	packCmd.Flags().StringVar(&packExclude, "exclude", "", `Exclusions as JSON, e.g. {"commands":["draft-*"]}`)
	packCmd.Flags().StringVar(&packDescription, "description", "", "Bundle description")
	packCmd.Flags().StringVar(&packAuthor, "author", "", "Bundle author")
	packCmd.Flags().StringVar(&packLicense, "license", manifest.DefaultLicense, "Bundle license")
	packCmd.Flags().BoolVar(&packList, "list", false, "List packable content and exit")
	packCmd.Flags().BoolVar(&packDryRun, "dry-run", false, "Show what would be packed without writing")
	packCmd.Flags().BoolVar(&packSkipSanitize, "skip-sanitize", false, "Keep secret values as they are")
	packCmd.Flags().BoolVarP(&packYes, "yes", "y", false, "Overwrite an existing bundle without asking")
	packContent.register(packCmd)
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	source := paths.ClaudeDir
	if packSource != "" {
		source = config.ExpandHome(packSource, paths.Home)
	}

	if packList {
		return printPackable(cmd, source)
	}

	if packName == "" {
		return fmt.Errorf("--name is required")
	}
	if !versioning.Valid(packVersion) {
		return fmt.Errorf("invalid --version %q (want MAJOR.MINOR.PATCH[-PRERELEASE])", packVersion)
	}
	content := packContent.set()
	if content == nil {
		return fmt.Errorf("nothing selected: use --commands, --agents, --skills, --hooks or --mcp (see --list)")
	}
	exclude, err := parseExclude(packExclude)
	if err != nil {
		return err
	}

	outDir := paths.ShareDir
	if packOutput != "" {
		outDir = config.ExpandHome(packOutput, paths.Home)
	}
	dir := filepath.Join(outDir, packName)

	overwrite := false
	if exists, _ := afero.DirExists(appFs, dir); exists && !packDryRun {
		if !newPrompter(cmd, packYes).confirm(fmt.Sprintf("%s already exists. Replace it?", dir), false) {
			fmt.Fprintln(out, "Pack cancelled.")
			return nil
		}
		overwrite = true
	}

	res, err := bundle.Pack(appFs, bundle.PackOptions{
		Name:         packName,
		Version:      packVersion,
		Description:  packDescription,
		Author:       packAuthor,
		License:      packLicense,
		Source:       source,
		Dir:          dir,
		Content:      content,
		Exclude:      exclude,
		SkipSanitize: packSkipSanitize,
		Overwrite:    overwrite,
		DryRun:       packDryRun,
	})
	if err != nil {
		if errors.Is(err, bundle.ErrBundleExists) {
			return fmt.Errorf("%w (pass --yes to replace it)", err)
		}
		return fmt.Errorf("packing %s: %w", packName, err)
	}

	fmt.Fprintf(out, "Packing %s v%s from %s\n", packName, packVersion, source)
	printReport(out, res.Report)

	if len(res.Sensitive) > 0 {
		names := make([]string, 0, len(res.Sensitive))
		for name := range res.Sensitive {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(out, "\nReplaced %d sensitive value(s) with placeholders:\n", res.Placeholders)
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", sanitize.Placeholder(name))
		}
		if !packDryRun {
			fmt.Fprintf(out, "Recipients fill them in from %s\n", sanitize.EnvExampleFile)
		}
	} else if packSkipSanitize {
		fmt.Fprintln(out, "\nWarning: secrets were not sanitized; do not publish this bundle.")
	}

	if !packDryRun {
		fmt.Fprintf(out, "\n✓ Bundle written to %s\n", dir)
	}
	return res.Report.Err()
}

func printPackable(cmd *cobra.Command, source string) error {
	available, err := bundle.Packable(appFs, source)
	if err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Packable content in %s:\n", source)
	for _, kind := range manifest.Kinds {
		names := available[kind]
		fmt.Fprintf(out, "\n%s (%d)\n", kind, len(names))
		if len(names) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
	return nil
}
