package supabase

import (
	"errors"
	"testing"
)

func TestParseProjectRef_Valid(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://abc123.supabase.co", "abc123"},
		{"https://abc123.example.co", "abc123"},
		{"https://my-project.supabase.co/", "my-project"},
		{"https://x1.api.example.com/rest/v1", "x1"},
	}
	for _, c := range cases {
		got, err := ParseProjectRef(c.url)
		if err != nil {
			t.Fatalf("ParseProjectRef(%q) failed: %v", c.url, err)
		}
		if got != c.want {
			t.Errorf("ParseProjectRef(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestParseProjectRef_Invalid(t *testing.T) {
	cases := []string{
		"",
		"abc123",
		"http://abc123.supabase.co", // not https
		"https://supabase",          // no subdomain
		"https://UPPER.supabase.co", // invalid ref chars
		"ftp://abc123.supabase.co",
		"https://",
	}
	for _, c := range cases {
		_, err := ParseProjectRef(c)
		if err == nil {
			t.Errorf("ParseProjectRef(%q) succeeded, want error", c)
			continue
		}
		var invalid *InvalidReferenceError
		if !errors.As(err, &invalid) {
			t.Errorf("ParseProjectRef(%q) error = %T, want *InvalidReferenceError", c, err)
		}
	}
}
