package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a project-scoped client for the REST (PostgREST), Storage and
// Auth admin APIs, authenticated with a service-role or anon key.
type Client struct {
	httpClient *http.Client
	baseURL    string // https://<ref>.supabase.co, no trailing slash
	apiKey     string
}

// NewClient returns a client bound to one project URL and key.
func NewClient(projectURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(projectURL, "/"),
		apiKey:     apiKey,
	}
}

// Filter is one equality constraint on a column. Filters are applied in the
// order given.
type Filter struct {
	Column string
	Value  string
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
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
	return respData, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, header http.Header) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")

	respData, err := c.do(ctx, method, path, query, reqBody, header)
	if err != nil {
		return nil, err
	}
	if len(respData) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(respData), nil
}

func filterQuery(filters []Filter) url.Values {
	q := url.Values{}
	for _, f := range filters {
		q.Set(f.Column, "eq."+f.Value)
	}
	return q
}

// --- REST (PostgREST) ---

// Select reads up to limit rows from a table, applying the given equality
// filters. PostgREST enforces the limit server-side via the limit parameter.
func (c *Client) Select(ctx context.Context, table string, filters []Filter, limit int) ([]map[string]any, error) {
	q := filterQuery(filters)
	q.Set("select", "*")
	q.Set("limit", strconv.Itoa(limit))

	raw, err := c.doJSON(ctx, http.MethodGet, "/rest/v1/"+table, q, nil, nil)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}
	return rows, nil
}

// Insert writes one or more rows and returns the inserted representation.
func (c *Client) Insert(ctx context.Context, table string, data any) (json.RawMessage, error) {
	header := http.Header{}
	header.Set("Prefer", "return=representation")
	return c.doJSON(ctx, http.MethodPost, "/rest/v1/"+table, nil, data, header)
}

// Update patches all rows matching the filters and returns the updated
// representation. With zero filters every row in the table is updated;
// callers are expected to warn, not block.
func (c *Client) Update(ctx context.Context, table string, data map[string]any, filters []Filter) (json.RawMessage, error) {
	header := http.Header{}
	header.Set("Prefer", "return=representation")
	return c.doJSON(ctx, http.MethodPatch, "/rest/v1/"+table, filterQuery(filters), data, header)
}

// Delete removes all rows matching the filters and returns the deleted
// representation. Zero filters delete every row; same contract as Update.
func (c *Client) Delete(ctx context.Context, table string, filters []Filter) (json.RawMessage, error) {
	header := http.Header{}
	header.Set("Prefer", "return=representation")
	return c.doJSON(ctx, http.MethodDelete, "/rest/v1/"+table, filterQuery(filters), nil, header)
}

// --- Storage ---

// UploadObject stores an object, overwriting any existing one at the path.
func (c *Client) UploadObject(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	header := http.Header{}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	header.Set("x-upsert", "true")

	_, err := c.do(ctx, http.MethodPost, "/storage/v1/object/"+bucket+"/"+path, nil, bytes.NewReader(data), header)
	return err
}

// DownloadObject fetches an object's raw bytes.
func (c *Client) DownloadObject(ctx context.Context, bucket, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/storage/v1/object/"+bucket+"/"+path, nil, nil, nil)
}

// DeleteObject removes an object.
func (c *Client) DeleteObject(ctx context.Context, bucket, path string) error {
	_, err := c.do(ctx, http.MethodDelete, "/storage/v1/object/"+bucket+"/"+path, nil, nil, nil)
	return err
}

// ListObjects lists up to limit objects under a prefix in a bucket.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string, limit int) ([]map[string]any, error) {
	body := map[string]any{
		"prefix": prefix,
		"limit":  limit,
	}
	raw, err := c.doJSON(ctx, http.MethodPost, "/storage/v1/object/list/"+bucket, nil, body, nil)
	if err != nil {
		return nil, err
	}
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse object listing: %w", err)
	}
	return entries, nil
}

// --- Auth admin (GoTrue) ---

// User is the reduced view of an auth user exposed by the auth tool.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Created string `json:"created"`
}

// ListUsers returns a page of auth users reduced to {id, email, created}.
// Requires the service-role key.
func (c *Client) ListUsers(ctx context.Context, page, perPage int) ([]User, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	raw, err := c.doJSON(ctx, http.MethodGet, "/auth/v1/admin/users", q, nil, nil)
	if err != nil {
		return nil, err
	}
	var listing struct {
		Users []struct {
			ID        string `json:"id"`
			Email     string `json:"email"`
			CreatedAt string `json:"created_at"`
		} `json:"users"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("parse user listing: %w", err)
	}
	users := make([]User, len(listing.Users))
	for i, u := range listing.Users {
		users[i] = User{ID: u.ID, Email: u.Email, Created: u.CreatedAt}
	}
	return users, nil
}

// CreateUser creates a confirmed auth user.
func (c *Client) CreateUser(ctx context.Context, email, password string) (json.RawMessage, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	return c.doJSON(ctx, http.MethodPost, "/auth/v1/admin/users", nil, body, nil)
}

// DeleteUser removes an auth user by id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/auth/v1/admin/users/"+id, nil, nil, nil)
	return err
}
