// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/midam/playground/internal/backend"
	"github.com/midam/playground/internal/config"
	"github.com/midam/playground/internal/telemetry"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// annotationLogStderr marks commands that mirror logs to stderr.
const annotationLogStderr = "log-stderr"

// =============================================================================
// APP STATE
// =============================================================================

// app is what the root command sets up before any subcommand runs.
type app struct {
	// Global flags
	configPath string
	backendURL string
	modelID    string
	logLevel   string

	cfg       *config.Config
	logger    *slog.Logger
	closeLog  func() error
	telemetry *telemetry.Provider
}

// setup loads the config, applies flag overrides and starts logging and
// telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if a.backendURL != "" {
		cfg.Backend.URL = a.backendURL
	}
	if a.modelID != "" {
		cfg.Models.Default = a.modelID
	}
	if a.logLevel != "" {
		if _, err := config.ParseLevel(a.logLevel); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	config.SetGlobal(cfg)

	_, stderr := cmd.Annotations[annotationLogStderr]
	a.logger, a.closeLog = config.SetupLogger(cfg.Logging, stderr)
	slog.SetDefault(a.logger)

	a.telemetry, err = telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		TraceFile:      cfg.Telemetry.TraceFile,
		ServiceVersion: Version,
	})
	if err != nil {
		// Telemetry is optional; keep going without it.
		a.logger.Warn("telemetry disabled", "err", err)
		a.telemetry = nil
	}

	a.logger.Debug("starting", "command", cmd.CommandPath(), "version", Version, "backend", cfg.Backend.URL)
	return nil
}

// teardown flushes telemetry and closes the log file. Safe to call twice.
func (a *app) teardown() {
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.telemetry.Shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("telemetry shutdown failed", "err", err)
		}
		cancel()
		a.telemetry = nil
	}
	if a.closeLog != nil {
		_ = a.closeLog()
		a.closeLog = nil
	}
}

// client returns a backend client for the configured backend.
func (a *app) client() *backend.Client {
	return backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:      a.cfg.Backend.URL,
		UserID:       a.cfg.Backend.UserID,
		Timeout:      a.cfg.BackendTimeout(),
		DefaultModel: a.cfg.Models.Default,
	})
}

// watchPath is the config file to watch for hot reload, or "".
func (a *app) watchPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ActivePath()
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "playground",
		Short: "Midam's Playground - a terminal chat client",
		Long: `Midam's Playground is a terminal chat client for a session-based chat
backend. Conversations are listed in a sidebar, replies stream in as they
are generated and are rendered as markdown.

Run without a subcommand to start the terminal client.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, a)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.playground/config.toml)")
	flags.StringVar(&a.backendURL, "backend", "", "chat backend base URL")
	flags.StringVarP(&a.modelID, "model", "m", "", "model id to use")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newTUICmd(a),
		newServeCmd(a),
		newSessionsCmd(a),
		newAskCmd(a),
		newMockCmd(a),
		newReplCmd(a),
		newConfigCmd(),
	)
	return root, a
}

// Execute runs the command line. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd()
	defer a.teardown()

	return root.ExecuteContext(ctx)
}
