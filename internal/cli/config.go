package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/agentx-labs/confshare/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write settings stored at ~/.confshare/config.yaml.

Keys: share_dir, claude_dir, remote_timeout, conflict_mode, hooks_mode,
github_token, gitlab_token, log_file. Every key can be overridden with a
CONFSHARE_<KEY> environment variable.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := cfg.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, cfg.Display(key))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value, or every value",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Display(args[0]))
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		for _, key := range config.Keys() {
			fmt.Fprintf(w, "%s\t%s\n", key, cfg.Display(key))
		}
		return w.Flush()
	},
}
