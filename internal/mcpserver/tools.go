package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/calder-sh/supabase-mcp/internal/config"
	"github.com/calder-sh/supabase-mcp/internal/supabase"
)

// defaultLimit caps row and entry counts wherever the caller does not ask
// for less.
const defaultLimit = 100

type textOutput struct {
	Message string `json:"message"`
}

// toolset holds the per-variant upstream clients. In project mode every call
// goes through the one static client; in management mode the resolver
// exchanges (token, project ref) for keys once per project and the client is
// built per call.
type toolset struct {
	mode     config.Mode
	static   *supabase.Client
	mgmt     *supabase.Management
	resolver *supabase.KeyResolver
	logger   *slog.Logger
}

// client returns the project-scoped client for a call. In management mode
// projectURL is mandatory and keys come from the resolver's cache or one
// Management API fetch.
func (t *toolset) client(ctx context.Context, projectURL string) (*supabase.Client, error) {
	if t.mode == config.ModeProject {
		return t.static, nil
	}
	if projectURL == "" {
		return nil, missingOperand("project_url")
	}
	_, keys, err := t.resolver.Resolve(ctx, projectURL)
	if err != nil {
		return nil, err
	}
	return supabase.NewClient(projectURL, keys.ServiceRoleKey), nil
}

// missingOperand is the presence-check failure raised before any upstream
// call is attempted.
func missingOperand(field string) error {
	return fmt.Errorf("missing required argument %q", field)
}

// opErr prefixes any failure with the operation name so the caller sees
// which tool failed; upstream message/details/hint ride along verbatim via
// UpstreamError.
func opErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// sortedFilters converts a where-object into an ordered filter list so
// request URLs are deterministic.
func sortedFilters(where map[string]string) []supabase.Filter {
	cols := make([]string, 0, len(where))
	for col := range where {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	filters := make([]supabase.Filter, len(cols))
	for i, col := range cols {
		filters[i] = supabase.Filter{Column: col, Value: where[col]}
	}
	return filters
}

func jsonText(v any) (textOutput, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return textOutput{}, fmt.Errorf("marshal result: %w", err)
	}
	return textOutput{Message: string(data)}, nil
}

// --- select ---

type selectInput struct {
	ProjectURL string            `json:"project_url,omitempty" jsonschema:"Project URL (https://<ref>.supabase.co); required when the server was configured with an access token"`
	Table      string            `json:"table" jsonschema:"Table to read from"`
	Where      map[string]string `json:"where,omitempty" jsonschema:"Equality filters: column name to required value"`
	Limit      int               `json:"limit,omitempty" jsonschema:"Maximum rows to return (default 100)"`
}

func (t *toolset) handleSelect(ctx context.Context, req *mcp.CallToolRequest, input selectInput) (*mcp.CallToolResult, textOutput, error) {
	const op = "select"
	if input.Table == "" {
		return nil, textOutput{}, opErr(op, missingOperand("table"))
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	c, err := t.client(ctx, input.ProjectURL)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}
	rows, err := c.Select(ctx, input.Table, sortedFilters(input.Where), limit)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}
	// The limit travels upstream too, but never trust upstream to honor it.
	if len(rows) > limit {
		rows = rows[:limit]
	}

	out, err := jsonText(map[string]any{"data": rows, "count": len(rows)})
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}
	return nil, out, nil
}

// --- mutate ---

type mutateInput struct {
	ProjectURL string            `json:"project_url,omitempty" jsonschema:"Project URL (https://<ref>.supabase.co); required when the server was configured with an access token"`
	Action     string            `json:"action" jsonschema:"One of: insert, update, delete"`
	Table      string            `json:"table" jsonschema:"Table to write to"`
	Data       map[string]any    `json:"data,omitempty" jsonschema:"Row data; required for insert and update"`
	Where      map[string]string `json:"where,omitempty" jsonschema:"Equality filters selecting the rows to update or delete"`
}

func (t *toolset) handleMutate(ctx context.Context, req *mcp.CallToolRequest, input mutateInput) (*mcp.CallToolResult, textOutput, error) {
	const op = "mutate"
	if input.Table == "" {
		return nil, textOutput{}, opErr(op, missingOperand("table"))
	}
	switch input.Action {
	case "insert", "update":
		if len(input.Data) == 0 {
			return nil, textOutput{}, opErr(op, missingOperand("data"))
		}
	case "delete":
	default:
		return nil, textOutput{}, opErr(op, fmt.Errorf("unsupported action %q (supported: insert, update, delete)", input.Action))
	}

	filters := sortedFilters(input.Where)
	if (input.Action == "update" || input.Action == "delete") && len(filters) == 0 {
		// Allowed, not blocked: an unfiltered write hits every row.
		t.logger.Warn("unfiltered mutation affects all rows", "action", input.Action, "table", input.Table)
	}

	c, err := t.client(ctx, input.ProjectURL)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}

	var raw json.RawMessage
	switch input.Action {
	case "insert":
		raw, err = c.Insert(ctx, input.Table, input.Data)
	case "update":
		raw, err = c.Update(ctx, input.Table, input.Data, filters)
	case "delete":
		raw, err = c.Delete(ctx, input.Table, filters)
	}
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}

	out, err := jsonText(map[string]any{"action": input.Action, "result": raw})
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}
	return nil, out, nil
}

// --- storage ---

type storageInput struct {
	ProjectURL  string `json:"project_url,omitempty" jsonschema:"Project URL (https://<ref>.supabase.co); required when the server was configured with an access token"`
	Action      string `json:"action" jsonschema:"One of: upload, download, delete, list"`
	Bucket      string `json:"bucket" jsonschema:"Storage bucket name"`
	Path        string `json:"path,omitempty" jsonschema:"Object path; required for upload, download and delete"`
	Data        string `json:"data,omitempty" jsonschema:"Base64-encoded file content; required for upload"`
	ContentType string `json:"content_type,omitempty" jsonschema:"MIME type for upload (default application/octet-stream)"`
	Prefix      string `json:"prefix,omitempty" jsonschema:"Path prefix for list"`
}

func (t *toolset) handleStorage(ctx context.Context, req *mcp.CallToolRequest, input storageInput) (*mcp.CallToolResult, textOutput, error) {
	const op = "storage"
	if input.Bucket == "" {
		return nil, textOutput{}, opErr(op, missingOperand("bucket"))
	}
	switch input.Action {
	case "upload", "download", "delete":
		if input.Path == "" {
			return nil, textOutput{}, opErr(op, missingOperand("path"))
		}
	case "list":
	default:
		return nil, textOutput{}, opErr(op, fmt.Errorf("unsupported action %q (supported: upload, download, delete, list)", input.Action))
	}

	var payload []byte
	if input.Action == "upload" {
		if input.Data == "" {
			return nil, textOutput{}, opErr(op, missingOperand("data"))
		}
		var err error
		payload, err = base64.StdEncoding.DecodeString(input.Data)
		if err != nil {
			return nil, textOutput{}, opErr(op, fmt.Errorf("decode base64 data: %w", err))
		}
	}

	c, err := t.client(ctx, input.ProjectURL)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}

	var result any
	switch input.Action {
	case "upload":
		if err := c.UploadObject(ctx, input.Bucket, input.Path, payload, input.ContentType); err != nil {
			return nil, textOutput{}, opErr(op, err)
		}
		result = map[string]any{"uploaded": input.Path, "bytes": len(payload)}
	case "download":
		data, err := c.DownloadObject(ctx, input.Bucket, input.Path)
		if err != nil {
			return nil, textOutput{}, opErr(op, err)
		}
		result = map[string]any{"path": input.Path, "data": base64.StdEncoding.EncodeToString(data), "bytes": len(data)}
	case "delete":
		if err := c.DeleteObject(ctx, input.Bucket, input.Path); err != nil {
			return nil, textOutput{}, opErr(op, err)
		}
		result = map[string]any{"deleted": input.Path}
	case "list":
		entries, err := c.ListObjects(ctx, input.Bucket, input.Prefix, defaultLimit)
		if err != nil {
			return nil, textOutput{}, opErr(op, err)
		}
		if len(entries) > defaultLimit {
			entries = entries[:defaultLimit]
		}
		result = map[string]any{"objects": entries, "count": len(entries)}
	}

	out, err := jsonText(result)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}
	return nil, out, nil
}

// --- auth ---

type authInput struct {
	ProjectURL string `json:"project_url,omitempty" jsonschema:"Project URL (https://<ref>.supabase.co); required when the server was configured with an access token"`
	Action     string `json:"action" jsonschema:"One of: list, create, delete"`
	Email      string `json:"email,omitempty" jsonschema:"Email address; required for create"`
	Password   string `json:"password,omitempty" jsonschema:"Password; required for create"`
	ID         string `json:"id,omitempty" jsonschema:"User id; required for delete"`
	Page       int    `json:"page,omitempty" jsonschema:"Page number for list"`
	PerPage    int    `json:"per_page,omitempty" jsonschema:"Page size for list (at most 100 entries are returned)"`
}

func (t *toolset) handleAuth(ctx context.Context, req *mcp.CallToolRequest, input authInput) (*mcp.CallToolResult, textOutput, error) {
	const op = "auth"
	switch input.Action {
	case "list":
	case "create":
		if input.Email == "" {
			return nil, textOutput{}, opErr(op, missingOperand("email"))
		}
		if input.Password == "" {
			return nil, textOutput{}, opErr(op, missingOperand("password"))
		}
	case "delete":
		if input.ID == "" {
			return nil, textOutput{}, opErr(op, missingOperand("id"))
		}
	default:
		return nil, textOutput{}, opErr(op, fmt.Errorf("unsupported action %q (supported: list, create, delete)", input.Action))
	}

	c, err := t.client(ctx, input.ProjectURL)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}

	var result any
	switch input.Action {
	case "list":
		users, err := c.ListUsers(ctx, input.Page, input.PerPage)
		if err != nil {
			return nil, textOutput{}, opErr(op, err)
		}
		if len(users) > defaultLimit {
			users = users[:defaultLimit]
		}
		result = map[string]any{"users": users, "count": len(users)}
	case "create":
		raw, err := c.CreateUser(ctx, input.Email, input.Password)
		if err != nil {
			return nil, textOutput{}, opErr(op, err)
		}
		result = map[string]any{"created": raw}
	case "delete":
		if err := c.DeleteUser(ctx, input.ID); err != nil {
			return nil, textOutput{}, opErr(op, err)
		}
		result = map[string]any{"deleted": input.ID}
	}

	out, err := jsonText(result)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}
	return nil, out, nil
}

// --- query (management variant only) ---

type queryInput struct {
	ProjectURL string `json:"project_url" jsonschema:"Project URL (https://<ref>.supabase.co)"`
	SQL        string `json:"sql" jsonschema:"SQL query to execute"`
	Params     []any  `json:"params,omitempty" jsonschema:"Positional parameters bound to $1..$n"`
}

func (t *toolset) handleQuery(ctx context.Context, req *mcp.CallToolRequest, input queryInput) (*mcp.CallToolResult, textOutput, error) {
	const op = "query"
	if input.SQL == "" {
		return nil, textOutput{}, opErr(op, missingOperand("sql"))
	}
	if input.ProjectURL == "" {
		return nil, textOutput{}, opErr(op, missingOperand("project_url"))
	}
	ref, err := supabase.ParseProjectRef(input.ProjectURL)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}

	raw, err := t.mgmt.ExecuteSQL(ctx, ref, input.SQL, input.Params)
	if err != nil {
		return nil, textOutput{}, opErr(op, err)
	}

	return nil, textOutput{Message: shapeQueryResult(raw, defaultLimit)}, nil
}
