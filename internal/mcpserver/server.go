// Package mcpserver exposes Supabase data, storage, auth and SQL operations
// as MCP tools over stdio. Each tool validates argument presence, performs
// exactly one upstream call and returns the (possibly truncated) JSON result
// as a single text content block.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/calder-sh/supabase-mcp/internal/config"
	"github.com/calder-sh/supabase-mcp/internal/supabase"
)

const serverVersion = "v0.2.0"

// New builds the MCP server for the given configuration. With unusable
// credentials the server still comes up, with zero tools registered, so an
// MCP client sees an empty tool list instead of a failed process.
func New(cfg *config.Config, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "supabase",
			Version: serverVersion,
		},
		nil,
	)

	ts := newToolset(cfg, logger)
	if ts == nil {
		logger.Warn("no usable credentials configured; starting with no tools registered",
			"hint", "set SUPABASE_URL + SUPABASE_SERVICE_ROLE_KEY, or SUPABASE_ACCESS_TOKEN")
		return server
	}
	ts.register(server)
	return server
}

// Run starts the server over stdio and blocks until the client disconnects
// or the context is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	return New(cfg, logger).Run(ctx, &mcp.StdioTransport{})
}

// newToolset wires a toolset for the configured variant, or nil when the
// configuration selects no variant.
func newToolset(cfg *config.Config, logger *slog.Logger) *toolset {
	switch cfg.Mode() {
	case config.ModeProject:
		return &toolset{
			mode:   config.ModeProject,
			static: supabase.NewClient(cfg.ProjectURL, cfg.ServiceKey),
			logger: logger,
		}
	case config.ModeManagement:
		mgmt := supabase.NewManagement(cfg.AccessToken, supabase.DefaultManagementURL)
		return &toolset{
			mode:     config.ModeManagement,
			mgmt:     mgmt,
			resolver: supabase.NewKeyResolver(mgmt),
			logger:   logger,
		}
	default:
		return nil
	}
}

func (t *toolset) register(server *mcp.Server) {
	projectURLNote := ""
	if t.mode == config.ModeManagement {
		projectURLNote = " The project_url argument (https://<ref>.supabase.co) is required on every call."
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select",
		Description: "Read rows from a table with optional equality filters and a row limit (default 100). Returns {data, count} as JSON." + projectURLNote,
	}, t.handleSelect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mutate",
		Description: "Insert, update or delete rows in a table. Updates and deletes apply to all rows matching the equality filters; with no filters they apply to the whole table." + projectURLNote,
	}, t.handleMutate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "storage",
		Description: "Operate on storage objects: upload (base64 data), download, delete, or list a bucket. Listings are truncated to the first 100 entries." + projectURLNote,
	}, t.handleStorage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "auth",
		Description: "Administer auth users: list (first 100, reduced to id/email/created), create (email+password), or delete by id." + projectURLNote,
	}, t.handleAuth)

	if t.mode == config.ModeManagement {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "query",
			Description: "Execute a raw SQL query against the project database via the Management API. Optional positional $n params. Array results over 100 rows are reshaped to {rows, total}." + projectURLNote,
		}, t.handleQuery)
	}
}
