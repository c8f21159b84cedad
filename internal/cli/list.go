package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/agentx-labs/confshare/internal/library"
	"github.com/agentx-labs/confshare/internal/remote"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	listRole    string
	listPlugin  string
	listDetails bool
	listFormat  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached bundles",
	Long: `List the bundles cached in the share directory. Bundles with a
repository configured are yours to publish (sharer); the rest were
received (user).`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listRole, "role", "user", "Filter by role: user (all bundles) or sharer (published bundles)")
	listCmd.Flags().StringVar(&listPlugin, "plugin", "", "Show details for one bundle")
	listCmd.Flags().BoolVar(&listDetails, "details", false, "Show details for every bundle")
	listCmd.Flags().StringVar(&listFormat, "format", "table", "Output format: table, json or compact")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	role, err := library.ParseRole(listRole)
	if err != nil {
		return err
	}
	lib := library.Open(appFs, paths.ShareDir)

	if listPlugin != "" {
		p, err := lib.Find(listPlugin)
		if err != nil {
			return err
		}
		printPluginDetails(cmd, *p)
		return nil
	}

	plugins, err := lib.List()
	if err != nil {
		return fmt.Errorf("listing %s: %w", paths.ShareDir, err)
	}
	plugins = library.Filter(plugins, role)

	switch listFormat {
	case "json":
		return printPluginsJSON(cmd, plugins)
	case "compact", "table":
	default:
		return fmt.Errorf("invalid --format %q (want table, json, or compact)", listFormat)
	}

	if len(plugins) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No bundles in %s\n", paths.ShareDir)
		return nil
	}
	if listDetails {
		for i, p := range plugins {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			printPluginDetails(cmd, p)
		}
		return nil
	}
	if listFormat == "compact" {
		for _, p := range plugins {
			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s\n", p.Name, p.Version)
		}
		return nil
	}
	return printPluginsTable(cmd, plugins)
}

func printPluginsTable(cmd *cobra.Command, plugins []library.Plugin) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tROLE\tAPPLIED\tUPDATED")
	for _, p := range plugins {
		updated := "-"
		if !p.UpdatedAt.IsZero() {
			updated = humanize.Time(p.UpdatedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Version, p.Role(), humanize.Comma(int64(len(p.Targets))), updated)
	}
	return w.Flush()
}

func printPluginsJSON(cmd *cobra.Command, plugins []library.Plugin) error {
	if plugins == nil {
		plugins = []library.Plugin{}
	}
	data, err := json.MarshalIndent(plugins, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func printPluginDetails(cmd *cobra.Command, p library.Plugin) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s v%s (%s)\n", p.Name, p.Version, p.Role())
	fmt.Fprintf(out, "  Path:        %s\n", p.Path)
	fmt.Fprintf(out, "  Author:      %s\n", orDash(p.Author))
	fmt.Fprintf(out, "  Description: %s\n", orDash(p.Description))
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "  Updated:     %s (%s)\n", p.UpdatedAt.Format("2006-01-02 15:04"), humanize.Time(p.UpdatedAt))
	}
	if p.Repository.URL != "" {
		fmt.Fprintf(out, "  Repository:  %s (%s)\n", p.Repository.URL, p.Repository.Type)
	}
	if len(p.Targets) > 0 {
		fmt.Fprintf(out, "  Applied to:  %s\n", strings.Join(p.Targets, ", "))
	}

	if !remote.IsRepo(p.Path) {
		fmt.Fprintln(out, "  Git repository: no")
		return
	}
	fmt.Fprintln(out, "  Git repository: yes")
	remotes, err := remote.Remotes(p.Path)
	if err != nil || len(remotes) == 0 {
		return
	}
	names := make([]string, 0, len(remotes))
	for name := range remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "    %s\t%s\n", name, remote.Redact(remotes[name], ""))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
