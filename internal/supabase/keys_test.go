package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newKeysServer(t *testing.T, hits *int, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/projects/abc123/api-keys" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sbp_test" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		*hits++
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestKeyResolver_CachesPerRef(t *testing.T) {
	hits := 0
	srv := newKeysServer(t, &hits,
		`[{"name":"anon","api_key":"anon-key"},{"name":"service_role","api_key":"sr-key"}]`,
		http.StatusOK)
	defer srv.Close()

	r := NewKeyResolver(NewManagement("sbp_test", srv.URL))

	ref, keys, err := r.Resolve(context.Background(), "https://abc123.supabase.co")
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if ref != "abc123" {
		t.Errorf("ref = %q, want %q", ref, "abc123")
	}
	if keys.ServiceRoleKey != "sr-key" || keys.AnonKey != "anon-key" {
		t.Errorf("unexpected keys: %+v", keys)
	}

	_, again, err := r.Resolve(context.Background(), "https://abc123.supabase.co")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if again != keys {
		t.Errorf("second Resolve returned different keys: %+v vs %+v", again, keys)
	}
	if hits != 1 {
		t.Errorf("upstream fetched %d times, want exactly 1", hits)
	}
}

func TestKeyResolver_InvalidURL(t *testing.T) {
	r := NewKeyResolver(NewManagement("sbp_test", "http://unused"))
	_, _, err := r.Resolve(context.Background(), "not-a-url")
	var invalid *InvalidReferenceError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *InvalidReferenceError", err)
	}
}

func TestKeyResolver_MissingServiceRole_NotCached(t *testing.T) {
	hits := 0
	srv := newKeysServer(t, &hits, `[{"name":"anon","api_key":"anon-key"}]`, http.StatusOK)
	defer srv.Close()

	r := NewKeyResolver(NewManagement("sbp_test", srv.URL))

	for i := 0; i < 2; i++ {
		_, _, err := r.Resolve(context.Background(), "https://abc123.supabase.co")
		if !errors.Is(err, ErrMissingServiceRoleKey) {
			t.Fatalf("Resolve error = %v, want ErrMissingServiceRoleKey", err)
		}
	}
	if hits != 2 {
		t.Errorf("upstream fetched %d times, want 2 (partial results must not be cached)", hits)
	}
}

func TestKeyResolver_UpstreamError_NotCached(t *testing.T) {
	hits := 0
	srv := newKeysServer(t, &hits, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	defer srv.Close()

	r := NewKeyResolver(NewManagement("sbp_test", srv.URL))

	for i := 0; i < 2; i++ {
		_, _, err := r.Resolve(context.Background(), "https://abc123.supabase.co")
		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("Resolve error = %v, want *UpstreamError", err)
		}
		if upstream.Status != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", upstream.Status)
		}
	}
	if hits != 2 {
		t.Errorf("upstream fetched %d times, want 2 (failures must not be cached)", hits)
	}
}
