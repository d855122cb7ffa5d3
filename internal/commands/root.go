package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-sh/supabase-mcp/internal/update"
)

// Version is set at build time.
var Version = "0.2.0"

var rootCmd = &cobra.Command{
	Use:     "supabase-mcp",
	Short:   "MCP server exposing Supabase as tools for AI assistants",
	Long:    "supabase-mcp runs a Model Context Protocol server over stdio that lets AI assistants query, mutate, and administer a Supabase project through a small set of typed tools.",
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and check for a newer release",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("supabase-mcp %s\n", Version)
		if res := update.Check("calder-sh", "supabase-mcp", Version); res.NeedsUpdate() {
			fmt.Printf("A newer release is available: %s (%s)\n", res.Latest, res.UpdateURL)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
}
