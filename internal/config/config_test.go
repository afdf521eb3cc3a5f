package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "https://api.example.com"
	cfg.SetDefaults()
	return cfg
}

func TestSetDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	if cfg.API.Version != "v1" {
		t.Errorf("API.Version = %q, want v1", cfg.API.Version)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.Permissions.Freshness != 5*time.Minute {
		t.Errorf("Permissions.Freshness = %v, want 5m", cfg.Permissions.Freshness)
	}
	if cfg.Permissions.DecisionCacheTTL != 30*time.Second {
		t.Errorf("Permissions.DecisionCacheTTL = %v, want 30s", cfg.Permissions.DecisionCacheTTL)
	}
	if cfg.Permissions.DecisionCacheSize != 256 {
		t.Errorf("Permissions.DecisionCacheSize = %d, want 256", cfg.Permissions.DecisionCacheSize)
	}
	if cfg.Vault.Path == "" || filepath.Base(cfg.Vault.Path) != "vault.json" {
		t.Errorf("Vault.Path = %q", cfg.Vault.Path)
	}
	if !cfg.AuditEnabled() {
		t.Error("audit must default to enabled")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestSetDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.API.BaseURL = "https://api.example.com"
	cfg.API.Timeout = 3 * time.Second
	cfg.Permissions.Freshness = time.Minute
	enabled := false
	cfg.Audit.Enabled = &enabled
	cfg.SetDefaults()

	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want explicit 3s", cfg.API.Timeout)
	}
	if cfg.Permissions.Freshness != time.Minute {
		t.Errorf("Permissions.Freshness = %v, want explicit 1m", cfg.Permissions.Freshness)
	}
	if cfg.AuditEnabled() {
		t.Error("explicit audit disable must survive SetDefaults")
	}
}

func TestAPIRoot(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if got := cfg.APIRoot(); got != "https://api.example.com/api/v1" {
		t.Errorf("APIRoot() = %q", got)
	}
}

func TestSetDevDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{DevMode: true}
	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if cfg.API.BaseURL != "http://localhost:3000" {
		t.Errorf("dev BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("dev LogLevel = %q, want debug", cfg.LogLevel)
	}

	// Dev mode never overrides an explicit backend.
	cfg2 := validConfig()
	cfg2.DevMode = true
	cfg2.SetDevDefaults()
	if cfg2.API.BaseURL != "https://api.example.com" {
		t.Errorf("dev mode replaced explicit BaseURL with %q", cfg2.API.BaseURL)
	}
}

func TestFindConfigFileInPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("empty dir returned %q", got)
	}

	path := filepath.Join(dir, "cinedesk.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: https://api.example.com\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFileInPaths([]string{dir}); got != path {
		t.Errorf("findConfigFileInPaths() = %q, want %q", got, path)
	}

	// .yaml wins over .yml when both exist.
	if err := os.WriteFile(filepath.Join(dir, "cinedesk.yml"), []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFileInPaths([]string{dir}); got != path {
		t.Errorf("findConfigFileInPaths() with both extensions = %q, want %q", got, path)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "required"},
		{"scheme-less base url", func(c *Config) { c.API.BaseURL = "api.example.com" }, "http(s)"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://api.example.com" }, "http(s)"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "one of"},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "not an addr" }, "host:port"},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, "at least"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
