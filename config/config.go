// Package config provides configuration loading and management for orderdesk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete orderdesk configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	HTTP      HTTPConfig      `yaml:"http"`
	NATS      NATSConfig      `yaml:"nats"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig configures the connection to the order-management backend.
type APIConfig struct {
	// BaseURL is the backend API root (e.g., "https://api.example.pl/v1")
	BaseURL string `yaml:"base_url"`
	// Token is the bearer token sent on every backend request
	Token string `yaml:"token"`
	// Timeout is the per-request timeout for backend calls
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the board HTTP API served to the web UI.
type HTTPConfig struct {
	// Addr is the listen address (default: 127.0.0.1:8732)
	Addr string `yaml:"addr"`
}

// NATSConfig configures the optional NATS event bridge.
type NATSConfig struct {
	// URL is the NATS server URL (empty = bridge disabled)
	URL string `yaml:"url"`
	// SubjectPrefix prefixes every forwarded event subject
	SubjectPrefix string `yaml:"subject_prefix"`
}

// ReconcileConfig configures the post-load reconciliation pass.
type ReconcileConfig struct {
	// Enabled controls whether drifted statuses are corrected after a load
	Enabled *bool `yaml:"enabled"`
	// MaxConcurrent caps parallel corrective writes (0 = unlimited)
	MaxConcurrent int `yaml:"max_concurrent"`
}

// On reports whether reconciliation is enabled.
func (r ReconcileConfig) On() bool {
	return r.Enabled == nil || *r.Enabled
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is "text" or "json"
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	enabled := true
	return &Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8732",
		},
		NATS: NATSConfig{
			SubjectPrefix: "orderdesk",
		},
		Reconcile: ReconcileConfig{
			Enabled:       &enabled,
			MaxConcurrent: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	if c.Reconcile.MaxConcurrent < 0 {
		return fmt.Errorf("reconcile.max_concurrent must not be negative")
	}
	return nil
}

// Merge overlays fields set in other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// API
	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.Token != "" {
		c.API.Token = other.API.Token
	}
	if other.API.Timeout != 0 {
		c.API.Timeout = other.API.Timeout
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	// Reconcile
	if other.Reconcile.Enabled != nil {
		c.Reconcile.Enabled = other.Reconcile.Enabled
	}
	if other.Reconcile.MaxConcurrent != 0 {
		c.Reconcile.MaxConcurrent = other.Reconcile.MaxConcurrent
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
