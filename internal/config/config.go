// Package config assembles the server configuration from, in order of
// precedence: command-line flags, environment variables, an optional YAML
// config file, and the OS keychain (access token only).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/calder-sh/supabase-mcp/internal/secrets"
	"github.com/calder-sh/supabase-mcp/internal/supabase"
)

// Mode selects which credential variant the server runs in.
type Mode int

const (
	// ModeNone means no usable credentials were configured. The server
	// still starts, with no tools registered.
	ModeNone Mode = iota
	// ModeProject binds every tool to one project via (projectUrl, serviceKey).
	ModeProject
	// ModeManagement authenticates with a personal access token; each tool
	// call names its project and keys are resolved per project.
	ModeManagement
)

// Config holds the resolved server configuration.
type Config struct {
	ProjectURL  string `yaml:"project_url"`
	ServiceKey  string `yaml:"service_key"`
	AccessToken string `yaml:"access_token"`
}

// Overrides carries flag values, which beat every other source.
type Overrides struct {
	ProjectURL  string
	ServiceKey  string
	AccessToken string
}

// DefaultPath returns the default config file location
// (~/.config/supabase-mcp/config.yaml or the platform equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "supabase-mcp", "config.yaml")
}

// StateDir returns the directory used for the file-based credential
// fallback.
func StateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "supabase-mcp")
}

// Load builds the configuration. A missing config file is not an error; a
// malformed one is. Credential absence is never an error here: Mode decides
// that, and an unusable configuration degrades the server to a no-op tool
// set rather than failing startup.
func Load(path string, ov Overrides, store secrets.Store) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// no config file, fine
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.ProjectURL = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); v != "" {
		cfg.ServiceKey = v
	}
	if v := os.Getenv("SUPABASE_ACCESS_TOKEN"); v != "" {
		cfg.AccessToken = v
	}

	if ov.ProjectURL != "" {
		cfg.ProjectURL = ov.ProjectURL
	}
	if ov.ServiceKey != "" {
		cfg.ServiceKey = ov.ServiceKey
	}
	if ov.AccessToken != "" {
		cfg.AccessToken = ov.AccessToken
	}

	if cfg.AccessToken == "" && store != nil {
		if tok, err := store.Get(secrets.AccessTokenKey); err == nil {
			cfg.AccessToken = tok
		}
	}

	return cfg, nil
}

// Mode reports which variant the configuration selects. An access token wins
// over a project pair when both are present. A project pair with a malformed
// project URL yields ModeNone.
func (c *Config) Mode() Mode {
	if c.AccessToken != "" {
		return ModeManagement
	}
	if c.ProjectURL != "" && c.ServiceKey != "" {
		if _, err := supabase.ParseProjectRef(c.ProjectURL); err != nil {
			return ModeNone
		}
		return ModeProject
	}
	return ModeNone
}
