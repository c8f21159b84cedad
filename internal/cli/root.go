package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/agentx-labs/confshare/internal/branding"
	"github.com/agentx-labs/confshare/internal/config"
	"github.com/agentx-labs/confshare/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var verbosity int

// appFs, homeDir and now are swapped out by tests.
var (
	appFs   afero.Fs = afero.NewOsFs()
	homeDir          = config.UserHome
	now              = time.Now
)

// Resolved in PersistentPreRunE for every command.
var (
	cfg   *config.Config
	paths config.Paths
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` packs assistant configuration (commands, agents, skills, hooks and
MCP servers) into shareable bundles, applies bundles safely to a
configuration tree, and publishes them through git hosting.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(appFs, homeDir())
	if err != nil {
		return err
	}
	paths = cfg.Paths()

	logging.Setup(verbosity, cfg.Get(config.KeyLogFile))
	logger := logging.GetLogger("cli")
	logger.Debug().
		Str("command", cmd.CommandPath()).
		Strs("args", args).
		Str("shareDir", paths.ShareDir).
		Msg("starting")
	return nil
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
