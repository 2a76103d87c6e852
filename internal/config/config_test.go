// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midam/playground/internal/model"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PLAYGROUND_HOME", dir)
	for _, k := range []string{
		"PLAYGROUND_BACKEND_URL", "PLAYGROUND_USER_ID", "PLAYGROUND_MODEL",
		"PLAYGROUND_PORT", "PLAYGROUND_MOCK_DELAY", "PLAYGROUND_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefault_IsValid(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, "FrontendUser", cfg.Backend.UserID)
	assert.Equal(t, model.DefaultModelID, cfg.Models.Default)
	assert.Equal(t, time.Second, cfg.MockDelay())
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, filepath.Join(dir, "logs", "playground.log"), cfg.Logging.File)
	assert.Empty(t, ActivePath())
}

func TestLoad_TOMLPartial(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[backend]
url = "http://chat.internal:9000/"

[models]
default = "local"
options = [
  { id = "local", name = "Local" },
  { id = "remote" },
]
`), 0600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, path, ActivePath())
	assert.Equal(t, "http://chat.internal:9000", cfg.Backend.URL)
	assert.Equal(t, "FrontendUser", cfg.Backend.UserID)
	assert.Equal(t, "local", cfg.Models.Default)
	require.Len(t, cfg.Models.Options, 2)
	assert.Equal(t, "remote", cfg.Models.Options[1].Name, "missing name falls back to id")
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"backend":{"user_id":"alice"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Backend.UserID)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[server]
port = 70000
`), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "server.port", verrs[0].Field)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PLAYGROUND_BACKEND_URL", "http://10.0.0.2:8000")
	t.Setenv("PLAYGROUND_USER_ID", "bob")
	t.Setenv("PLAYGROUND_MODEL", "gpt-4")
	t.Setenv("PLAYGROUND_PORT", "4000")
	t.Setenv("PLAYGROUND_MOCK_DELAY", "0")
	t.Setenv("PLAYGROUND_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.2:8000", cfg.Backend.URL)
	assert.Equal(t, "bob", cfg.Backend.UserID)
	assert.Equal(t, "gpt-4", cfg.Models.Default)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.MockDelay())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.Backend.URL = "not a url" }, "backend.url"},
		{"ftp url", func(c *Config) { c.Backend.URL = "ftp://host" }, "backend.url"},
		{"blank user", func(c *Config) { c.Backend.UserID = "  " }, "backend.user_id"},
		{"unknown default model", func(c *Config) { c.Models.Default = "nope" }, "models.default"},
		{"duplicate model", func(c *Config) {
			c.Models.Options = append(c.Models.Options, model.ModelOption{ID: "gpt-4"})
		}, "models.options[3].id"},
		{"negative delay", func(c *Config) { c.Server.MockDelayMs = -1 }, "server.mock_delay_ms"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"narrow sidebar", func(c *Config) { c.UI.SidebarWidth = 4 }, "ui.sidebar_width"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	cfg.Backend.UserID = "carol"
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "carol", loaded.Backend.UserID)
	assert.Equal(t, cfg.Models.Options, loaded.Models.Options)
}

func TestClone_Independent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Models.Options[0].Name = "changed"
	assert.NotEqual(t, "changed", cfg.Models.Options[0].Name)
}

// =============================================================================
// GLOBAL
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

// =============================================================================
// LOGGING
// =============================================================================

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetupLoggerWithWriters_FansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("session created", "chat_id", "c1")

	assert.NotContains(t, file.String(), "hidden")
	assert.Contains(t, file.String(), `"chat_id":"c1"`)
	assert.Contains(t, stderr.String(), "chat_id=c1")
}

func TestSetupLogger_WritesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "logs", "test.log")

	logger, closeLog := SetupLogger(LoggingConfig{File: path, Level: "info"}, false)
	logger.Info("hello", "k", "v")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"hello"`))
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[backend]\nuser_id = \"first\"\n"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), func(c *Config) {
		got <- c
	}))

	require.NoError(t, os.WriteFile(path, []byte("[backend]\nuser_id = \"second\"\n"), 0600))

	select {
	case cfg := <-got:
		assert.Equal(t, "second", cfg.Backend.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}
