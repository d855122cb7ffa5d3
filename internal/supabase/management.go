package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultManagementURL is the hosted Supabase Management API.
const DefaultManagementURL = "https://api.supabase.com"

// Management wraps HTTP calls to the Supabase Management API, authenticated
// with a personal access token.
type Management struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewManagement returns a Management API client for the given personal
// access token. baseURL is usually DefaultManagementURL; tests point it at a
// local server.
func NewManagement(token, baseURL string) *Management {
	if baseURL == "" {
		baseURL = DefaultManagementURL
	}
	return &Management{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

func (m *Management) doJSON(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(respData)}
	}

	if len(respData) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(respData), nil
}

// APIKey is one entry of a project's key listing.
type APIKey struct {
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

// ProjectAPIKeys returns all API keys for a project.
func (m *Management) ProjectAPIKeys(ctx context.Context, ref string) ([]APIKey, error) {
	raw, err := m.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/projects/%s/api-keys", ref), nil)
	if err != nil {
		return nil, err
	}
	var keys []APIKey
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("parse api keys: %w", err)
	}
	return keys, nil
}

// ExecuteSQL runs a raw SQL query against a project's database. Positional
// $n params, if any, are substituted with quoted literals before dispatch so
// the query still travels as a single Management API call.
func (m *Management) ExecuteSQL(ctx context.Context, ref, query string, params []any) (json.RawMessage, error) {
	q, err := bindParams(query, params)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/v1/projects/%s/database/query", ref)
	return m.doJSON(ctx, http.MethodPost, path, map[string]string{"query": q})
}

// bindParams replaces $1..$n placeholders with SQL literals. Placeholders are
// substituted highest-index first so $10 is not clobbered by $1.
func bindParams(query string, params []any) (string, error) {
	for i := len(params); i >= 1; i-- {
		placeholder := "$" + strconv.Itoa(i)
		if !strings.Contains(query, placeholder) {
			return "", fmt.Errorf("query has no placeholder %s for parameter %d", placeholder, i)
		}
		query = strings.ReplaceAll(query, placeholder, sqlLiteral(params[i-1]))
	}
	return query, nil
}

func sqlLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		data, _ := json.Marshal(t)
		return "'" + strings.ReplaceAll(string(data), "'", "''") + "'"
	}
}
