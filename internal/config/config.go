// Package config provides configuration loading for the cinedesk console.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the full console configuration.
type Config struct {
	API         APIConfig         `yaml:"api" mapstructure:"api" validate:"required"`
	Vault       VaultConfig       `yaml:"vault" mapstructure:"vault"`
	Audit       AuditConfig       `yaml:"audit" mapstructure:"audit"`
	Permissions PermissionsConfig `yaml:"permissions" mapstructure:"permissions"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`

	// LogLevel controls slog verbosity.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// DevMode relaxes defaults for local development.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	// BaseURL is the backend root without the version prefix.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,http_url"`
	// Version is the API version path segment (default "v1").
	Version string `yaml:"version" mapstructure:"version"`
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// VaultConfig configures local credential storage.
type VaultConfig struct {
	// Path is the vault file location. Defaults under the user home.
	Path string `yaml:"path" mapstructure:"path"`
}

// AuditConfig configures the local audit log.
type AuditConfig struct {
	// Enabled turns audit logging on (default true).
	Enabled *bool `yaml:"enabled" mapstructure:"enabled"`
	// Path is the audit file location. Defaults under the user home.
	Path string `yaml:"path" mapstructure:"path"`
	// MaxFileSizeMB caps one audit file before rotation (default 10).
	MaxFileSizeMB int `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb" validate:"gte=0"`
}

// PermissionsConfig tunes the permission store.
type PermissionsConfig struct {
	// Freshness is how long a loaded grant is trusted (default 5m).
	Freshness time.Duration `yaml:"freshness" mapstructure:"freshness" validate:"gte=0"`
	// DecisionCacheTTL bounds reuse of server-side check verdicts (default 30s).
	DecisionCacheTTL time.Duration `yaml:"decision_cache_ttl" mapstructure:"decision_cache_ttl" validate:"gte=0"`
	// DecisionCacheSize is the verdict LRU capacity (default 256).
	DecisionCacheSize int `yaml:"decision_cache_size" mapstructure:"decision_cache_size" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics listener on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Addr is the listen address (default "127.0.0.1:9190").
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.API.Version == "" {
		c.API.Version = "v1"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Vault.Path == "" {
		c.Vault.Path = filepath.Join(userDir(), "vault.json")
	}
	if c.Audit.Enabled == nil {
		enabled := true
		c.Audit.Enabled = &enabled
	}
	if c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(userDir(), "audit.log")
	}
	if c.Audit.MaxFileSizeMB == 0 {
		c.Audit.MaxFileSizeMB = 10
	}
	if c.Permissions.Freshness == 0 {
		c.Permissions.Freshness = 5 * time.Minute
	}
	if c.Permissions.DecisionCacheTTL == 0 {
		c.Permissions.DecisionCacheTTL = 30 * time.Second
	}
	if c.Permissions.DecisionCacheSize == 0 {
		c.Permissions.DecisionCacheSize = 256
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = "127.0.0.1:9190"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// SetDevDefaults applies development-friendly settings when DevMode is on.
// Call after any CLI flag overrides and before Validate.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:3000"
	}
	c.LogLevel = "debug"
}

// APIRoot is the fully qualified backend prefix, e.g.
// "https://api.example.com/api/v1".
func (c *Config) APIRoot() string {
	return c.API.BaseURL + "/api/" + c.API.Version
}

// AuditEnabled reports the effective audit toggle.
func (c *Config) AuditEnabled() bool {
	return c.Audit.Enabled == nil || *c.Audit.Enabled
}

// userDir is the per-user state directory.
func userDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cinedesk"
	}
	return filepath.Join(home, ".cinedesk")
}
