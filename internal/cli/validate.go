package cli

import (
	"fmt"
	"path/filepath"

	"github.com/agentx-labs/confshare/internal/bundle"
	"github.com/agentx-labs/confshare/internal/config"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	validateStrict bool
	validateFix    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check a bundle's structure, manifest and content",
	Long: `Check that a bundle directory holds a well-formed share_plugins.json,
that every selected file exists, that hooks and MCP files are valid JSON
and that agents carry name and description front matter.

--strict additionally requires every manifest field and checks the
manifest against its JSON Schema. --fix repairs the manifest first
(missing fields, malformed version, legacy keys).`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Require every manifest field and check the JSON Schema")
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "Repair the manifest before checking")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir := config.ExpandHome(args[0], paths.Home)

	if validateFix {
		changed, err := repairManifest(dir)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(out, "✓ Repaired %s\n", filepath.Join(dir, manifest.FileName))
		}
	}

	errs := bundle.Check(appFs, dir, validateStrict)
	if printProblems(out, errs) {
		return fmt.Errorf("%d problem(s) found in %s", len(errs), dir)
	}
	fmt.Fprintf(out, "✓ %s is valid\n", dir)
	return nil
}

func repairManifest(dir string) (bool, error) {
	path := filepath.Join(dir, manifest.FileName)
	doc, err := manifest.LoadDocument(appFs, path)
	if err != nil {
		return false, err
	}
	if !manifest.Repair(doc) {
		return false, nil
	}
	if err := manifest.SaveDocument(appFs, path, doc); err != nil {
		return false, err
	}
	return true, nil
}
