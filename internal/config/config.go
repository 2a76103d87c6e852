// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for playground.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.playground/config.toml
//   - ~/.playground/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete playground configuration.
type Config struct {
	// Backend the client talks to
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Model selector
	Models ModelsConfig `toml:"models" json:"models"`

	// Mock inference / dev backend server
	Server ServerConfig `toml:"server" json:"server"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// Tracing and latency metrics
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
}

// BackendConfig contains the chat backend connection settings.
type BackendConfig struct {
	// URL is the backend base URL
	URL string `toml:"url" json:"url"`
	// UserID is the fixed identity sessions are listed for
	UserID string `toml:"user_id" json:"user_id"`
	// TimeoutSecs bounds non-streaming requests
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// ModelsConfig contains the model catalogue.
type ModelsConfig struct {
	// Default is the model selected at startup
	Default string `toml:"default" json:"default"`
	// Options is the list offered by the model selector
	Options []model.ModelOption `toml:"options" json:"options"`
}

// ServerConfig contains settings for `playground serve`.
type ServerConfig struct {
	// Port to listen on
	Port int `toml:"port" json:"port"`
	// MockDelayMs is the artificial delay of the mock inference route
	MockDelayMs int `toml:"mock_delay_ms" json:"mock_delay_ms"`
	// DevBackend also serves the in-memory chat backend routes
	DevBackend bool `toml:"dev_backend" json:"dev_backend"`
	// StreamRate is the dev backend reply pace in chunks per second
	StreamRate float64 `toml:"stream_rate" json:"stream_rate"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowSidebar shows the session sidebar at startup
	ShowSidebar bool `toml:"show_sidebar" json:"show_sidebar"`
	// SidebarWidth in cells
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// File is the rotating JSON log file; empty uses the default location
	File string `toml:"file" json:"file"`
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Stderr mirrors logs to stderr as text (ignored by the TUI)
	Stderr bool `toml:"stderr" json:"stderr"`
}

// TelemetryConfig contains OpenTelemetry export settings.
type TelemetryConfig struct {
	// Enabled exports spans and metrics to TraceFile
	Enabled bool `toml:"enabled" json:"enabled"`
	// TraceFile receives the exported data; empty uses the default location
	TraceFile string `toml:"trace_file" json:"trace_file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         "http://localhost:8000",
			UserID:      "FrontendUser",
			TimeoutSecs: 30,
		},
		Models: ModelsConfig{
			Default: model.DefaultModelID,
			Options: model.DefaultModels(),
		},
		Server: ServerConfig{
			Port:        3000,
			MockDelayMs: 1000,
			DevBackend:  false,
			StreamRate:  100,
		},
		UI: UIConfig{
			Theme:        "auto",
			ShowSidebar:  true,
			SidebarWidth: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// BackendTimeout returns the backend timeout as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// MockDelay returns the mock inference delay as a duration.
func (c *Config) MockDelay() time.Duration {
	return time.Duration(c.Server.MockDelayMs) * time.Millisecond
}

// Catalog builds the model catalogue from the models section.
func (c *Config) Catalog() *model.Catalog {
	return model.NewCatalog(c.Models.Options, c.Models.Default)
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the playground configuration directory path.
// PLAYGROUND_HOME overrides the default ~/.playground.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PLAYGROUND_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".playground"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DefaultLogFile returns ~/.playground/logs/playground.log.
func DefaultLogFile() string {
	dir, err := ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "logs", "playground.log")
}

// DefaultTraceFile returns ~/.playground/logs/traces.log.
func DefaultTraceFile() string {
	return filepath.Join(filepath.Dir(DefaultLogFile()), "traces.log")
}

// ActivePath returns the config file Load would read, or "" if none exists.
func ActivePath() string {
	for _, fn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		if p, err := fn(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				return p
			}
		}
	}
	return ""
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path := ActivePath(); path != "" {
		return LoadFromPath(path)
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	// Decoders reuse existing slice elements; a file's model list must
	// replace the defaults, not merge into them.
	cfg.Models = ModelsConfig{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as TOML to path, creating parent directories. The file is
// replaced atomically so a running watcher never reads a partial config.
func Save(cfg *Config, path string) error {
	err := util.AtomicWriteFrom(path, 0600, 0755, func(w io.Writer) error {
		return toml.NewEncoder(w).Encode(cfg)
	})
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Backend.URL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
		})
	}

	if strings.TrimSpace(c.Backend.UserID) == "" {
		errs = append(errs, ValidationError{Field: "backend.user_id", Message: "must not be empty"})
	}
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "backend.timeout_secs", Message: "must not be negative"})
	}

	seen := make(map[string]bool)
	for i, opt := range c.Models.Options {
		if opt.ID == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("models.options[%d].id", i),
				Message: "must not be empty",
			})
			continue
		}
		if seen[opt.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("models.options[%d].id", i),
				Message: fmt.Sprintf("duplicate model '%s'", opt.ID),
			})
		}
		seen[opt.ID] = true
	}
	if c.Models.Default != "" && len(seen) > 0 && !seen[c.Models.Default] {
		errs = append(errs, ValidationError{
			Field:   "models.default",
			Message: fmt.Sprintf("model '%s' is not in models.options", c.Models.Default),
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", c.Server.Port),
		})
	}
	if c.Server.MockDelayMs < 0 {
		errs = append(errs, ValidationError{Field: "server.mock_delay_ms", Message: "must not be negative"})
	}
	if c.Server.StreamRate < 0 {
		errs = append(errs, ValidationError{Field: "server.stream_rate", Message: "must not be negative"})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.SidebarWidth < 16 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("width %d out of range 16-80", c.UI.SidebarWidth),
		})
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values left by partial config files.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Backend.URL == "" {
		c.Backend.URL = d.Backend.URL
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")
	if c.Backend.UserID == "" {
		c.Backend.UserID = d.Backend.UserID
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if len(c.Models.Options) == 0 {
		c.Models.Options = d.Models.Options
	}
	for i := range c.Models.Options {
		if c.Models.Options[i].Name == "" {
			c.Models.Options[i].Name = c.Models.Options[i].ID
		}
	}
	if c.Models.Default == "" && len(c.Models.Options) > 0 {
		c.Models.Default = c.Models.Options[0].ID
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.StreamRate == 0 {
		c.Server.StreamRate = d.Server.StreamRate
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.File == "" {
		c.Logging.File = DefaultLogFile()
	}
	if c.Telemetry.TraceFile == "" {
		c.Telemetry.TraceFile = DefaultTraceFile()
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
// Supported environment variables:
//   - PLAYGROUND_BACKEND_URL: overrides backend.url
//   - PLAYGROUND_USER_ID: overrides backend.user_id
//   - PLAYGROUND_MODEL: overrides models.default
//   - PLAYGROUND_PORT: overrides server.port
//   - PLAYGROUND_MOCK_DELAY: overrides server.mock_delay_ms (milliseconds)
//   - PLAYGROUND_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PLAYGROUND_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("PLAYGROUND_USER_ID"); v != "" {
		c.Backend.UserID = v
	}
	if v := os.Getenv("PLAYGROUND_MODEL"); v != "" {
		c.Models.Default = v
	}
	if v := os.Getenv("PLAYGROUND_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PLAYGROUND_MOCK_DELAY"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Server.MockDelayMs = ms
		}
	}
	if v := os.Getenv("PLAYGROUND_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Models.Options = append([]model.ModelOption(nil), c.Models.Options...)
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
