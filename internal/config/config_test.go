package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/calder-sh/supabase-mcp/internal/secrets"
)

func init() {
	keyring.MockInit()
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	t.Setenv("SUPABASE_ACCESS_TOKEN", "")
}

func TestLoad_PrecedenceFlagsOverEnvOverFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("project_url: https://fromfile.supabase.co\nservice_key: file-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SUPABASE_URL", "https://fromenv.supabase.co")

	cfg, err := Load(path, Overrides{ServiceKey: "flag-key"}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ProjectURL != "https://fromenv.supabase.co" {
		t.Errorf("ProjectURL = %q, want env value", cfg.ProjectURL)
	}
	if cfg.ServiceKey != "flag-key" {
		t.Errorf("ServiceKey = %q, want flag value", cfg.ServiceKey)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), Overrides{}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode() != ModeNone {
		t.Errorf("Mode = %v, want ModeNone", cfg.Mode())
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\nnot yaml: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, Overrides{}, nil); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestLoad_KeychainFallbackForToken(t *testing.T) {
	clearEnv(t)
	store := secrets.New(t.TempDir())
	if err := store.Set(secrets.AccessTokenKey, "sbp_fromkeychain"); err != nil {
		t.Fatal(err)
	}
	defer store.Delete(secrets.AccessTokenKey)

	cfg, err := Load("", Overrides{}, store)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AccessToken != "sbp_fromkeychain" {
		t.Errorf("AccessToken = %q, want keychain value", cfg.AccessToken)
	}
	if cfg.Mode() != ModeManagement {
		t.Errorf("Mode = %v, want ModeManagement", cfg.Mode())
	}
}

func TestMode(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want Mode
	}{
		{"empty", Config{}, ModeNone},
		{"token", Config{AccessToken: "sbp_x"}, ModeManagement},
		{"token wins over pair", Config{AccessToken: "sbp_x", ProjectURL: "https://abc.supabase.co", ServiceKey: "k"}, ModeManagement},
		{"project pair", Config{ProjectURL: "https://abc.supabase.co", ServiceKey: "k"}, ModeProject},
		{"malformed project url", Config{ProjectURL: "abc.supabase.co", ServiceKey: "k"}, ModeNone},
		{"missing key", Config{ProjectURL: "https://abc.supabase.co"}, ModeNone},
	}
	for _, c := range cases {
		if got := c.cfg.Mode(); got != c.want {
			t.Errorf("%s: Mode() = %v, want %v", c.name, got, c.want)
		}
	}
}
