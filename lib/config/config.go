// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for Hallway.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Homeserver configures the Matrix homeserver connection.
	Homeserver HomeserverConfig `yaml:"homeserver"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Paging configures timeline pagination defaults.
	Paging PagingConfig `yaml:"paging"`

	// Events configures event delivery.
	Events EventsConfig `yaml:"events"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Homeserver *HomeserverConfig `yaml:"homeserver,omitempty"`
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
	Paging     *PagingConfig     `yaml:"paging,omitempty"`
	Log        *LogConfig        `yaml:"log,omitempty"`
}

// HomeserverConfig configures the Matrix homeserver connection.
type HomeserverConfig struct {
	// URL is the base URL of the homeserver (e.g., "https://matrix.example.org").
	URL string `yaml:"url"`

	// SyncTimeoutMS is the long-poll timeout passed to /sync, in
	// milliseconds. Default: 30000.
	SyncTimeoutMS int `yaml:"sync_timeout_ms"`

	// RetryDelayMS is the delay before retrying a failed /sync, in
	// milliseconds. Default: 1000.
	RetryDelayMS int `yaml:"retry_delay_ms"`

	// MaxSyncRetries is the number of consecutive /sync failures
	// tolerated before the session is marked failed. Default: 5.
	MaxSyncRetries int `yaml:"max_sync_retries"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for Hallway data.
	Root string `yaml:"root"`

	// State is where the persisted session file lives.
	State string `yaml:"state"`

	// Media is where downloaded media content is written.
	Media string `yaml:"media"`
}

// PagingConfig configures timeline pagination defaults.
type PagingConfig struct {
	// DefaultLimit is the page size used when a backfill request does
	// not specify one. Default: 10.
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps the page size of a single backfill request.
	// Default: 100.
	MaxLimit int `yaml:"max_limit"`
}

// EventsConfig configures event delivery.
type EventsConfig struct {
	// AdditionalTypes extends the base set of event types delivered to
	// the global listener (custom event type names).
	AdditionalTypes []string `yaml:"additional_types"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: info.
	Level string `yaml:"level"`

	// Format selects the slog handler: "json" or "text".
	// Default: text (development), json (production).
	Format string `yaml:"format"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "hallway")

	return &Config{
		Environment: Development,
		Homeserver: HomeserverConfig{
			SyncTimeoutMS:  30000,
			RetryDelayMS:   1000,
			MaxSyncRetries: 5,
		},
		Paths: PathsConfig{
			Root:  defaultRoot,
			State: filepath.Join(defaultRoot, "state"),
			Media: filepath.Join(defaultRoot, "media"),
		},
		Paging: PagingConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the HALLWAY_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if HALLWAY_CONFIG is not set, this
// fails. This ensures deterministic, auditable configuration with no
// hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("HALLWAY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("HALLWAY_CONFIG environment variable not set; " +
			"set it to the path of your hallway.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do
// not override config values - this ensures deterministic, auditable
// configuration. The only expansion performed is ${HOME} and similar path
// variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production
	// sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production default: structured JSON logs.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Homeserver != nil {
		if overrides.Homeserver.URL != "" {
			c.Homeserver.URL = overrides.Homeserver.URL
		}
		if overrides.Homeserver.SyncTimeoutMS != 0 {
			c.Homeserver.SyncTimeoutMS = overrides.Homeserver.SyncTimeoutMS
		}
		if overrides.Homeserver.RetryDelayMS != 0 {
			c.Homeserver.RetryDelayMS = overrides.Homeserver.RetryDelayMS
		}
		if overrides.Homeserver.MaxSyncRetries != 0 {
			c.Homeserver.MaxSyncRetries = overrides.Homeserver.MaxSyncRetries
		}
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
		if overrides.Paths.Media != "" {
			c.Paths.Media = overrides.Paths.Media
		}
	}

	if overrides.Paging != nil {
		if overrides.Paging.DefaultLimit != 0 {
			c.Paging.DefaultLimit = overrides.Paging.DefaultLimit
		}
		if overrides.Paging.MaxLimit != 0 {
			c.Paging.MaxLimit = overrides.Paging.MaxLimit
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HALLWAY_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["HALLWAY_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Media = expandVars(c.Paths.Media, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Homeserver.URL == "" {
		errs = append(errs, fmt.Errorf("homeserver.url is required"))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if c.Paging.DefaultLimit <= 0 {
		errs = append(errs, fmt.Errorf("paging.default_limit must be positive"))
	}
	if c.Paging.MaxLimit < c.Paging.DefaultLimit {
		errs = append(errs, fmt.Errorf("paging.max_limit must be >= paging.default_limit"))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	formats := []string{"json", "text"}
	if !contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.State,
		c.Paths.Media,
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
