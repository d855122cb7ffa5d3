package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingServiceRoleKey is returned when the Management API key listing
// for a project contains no service_role entry. A result without it is never
// cached.
var ErrMissingServiceRoleKey = errors.New("project api keys contain no service_role entry")

// InvalidReferenceError is returned when a project URL does not match the
// expected https://<ref>.<host> shape.
type InvalidReferenceError struct {
	URL string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid project URL %q: expected https://<project-ref>.<host>", e.URL)
}

// UpstreamError carries a non-2xx response from any Supabase API. The body is
// kept verbatim so callers can surface the upstream message unchanged.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Message extracts the human-readable part of a PostgREST/GoTrue error body
// ({message, details, hint, code} or {msg} or {error}). Returns "" when the
// body is not recognizable JSON, in which case the raw body should be used.
func (e *UpstreamError) Message() string {
	var body struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Err     string `json:"error"`
		Details string `json:"details"`
		Hint    string `json:"hint"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	msg := body.Message
	if msg == "" {
		msg = body.Msg
	}
	if msg == "" {
		msg = body.Err
	}
	if msg == "" {
		return ""
	}
	if body.Details != "" {
		msg += " (details: " + body.Details + ")"
	}
	if body.Hint != "" {
		msg += " (hint: " + body.Hint + ")"
	}
	return msg
}
