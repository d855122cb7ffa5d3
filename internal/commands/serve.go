package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calder-sh/supabase-mcp/internal/config"
	"github.com/calder-sh/supabase-mcp/internal/mcpserver"
	"github.com/calder-sh/supabase-mcp/internal/secrets"
)

var serveFlags struct {
	projectURL  string
	serviceKey  string
	accessToken string
	configPath  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `Starts the MCP server on stdin/stdout. Two credential variants:

Project variant (tools bound to one project):
  supabase-mcp serve --project-url https://<ref>.supabase.co --service-key <key>

Management variant (access token; every tool call names its project):
  supabase-mcp serve --access-token sbp_...

Credentials may also come from SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY and
SUPABASE_ACCESS_TOKEN, the config file, or the OS keychain (see "login").
With no usable credentials the server still starts, with no tools registered.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.projectURL, "project-url", "", "Project URL (https://<ref>.supabase.co)")
	serveCmd.Flags().StringVar(&serveFlags.serviceKey, "service-key", "", "Project service-role key")
	serveCmd.Flags().StringVar(&serveFlags.accessToken, "access-token", "", "Personal access token for the Management API")
	serveCmd.Flags().StringVar(&serveFlags.configPath, "config", config.DefaultPath(), "Path to config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	// stdout carries the MCP stdio transport; all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store := secrets.New(config.StateDir())
	cfg, err := config.Load(serveFlags.configPath, config.Overrides{
		ProjectURL:  serveFlags.projectURL,
		ServiceKey:  serveFlags.serviceKey,
		AccessToken: serveFlags.accessToken,
	}, store)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := mcpserver.Run(ctx, cfg, logger); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
