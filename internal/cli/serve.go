// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/midam/playground/internal/server"
)

type serveOptions struct {
	port       int
	delay      time.Duration
	devBackend bool
	rate       float64
	origins    []string
}

func newServeCmd(a *app) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mock inference endpoint",
		Long: `Serve the mock inference endpoint POST /api/chat.

With --dev-backend the in-memory chat backend routes are served as well, so
the terminal client can run without the real backend:

  playground serve --dev-backend --port 8000
  playground --backend http://localhost:8000

Flags left unset fall back to the [server] section of the config file.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLogStderr: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("port") {
				opts.port = a.cfg.Server.Port
			}
			if !flags.Changed("delay") {
				opts.delay = a.cfg.MockDelay()
			}
			if !flags.Changed("dev-backend") {
				opts.devBackend = a.cfg.Server.DevBackend
			}
			if !flags.Changed("rate") {
				opts.rate = a.cfg.Server.StreamRate
			}
			return runServe(cmd.Context(), a, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.port, "port", "p", server.DefaultPort, "port to listen on")
	flags.DurationVar(&opts.delay, "delay", server.DefaultDelay, "artificial delay of the mock inference route")
	flags.BoolVar(&opts.devBackend, "dev-backend", false, "also serve the in-memory chat backend")
	flags.Float64Var(&opts.rate, "rate", server.DefaultStreamRate, "dev backend reply pace in chunks per second (0 = unthrottled)")
	flags.StringSliceVar(&opts.origins, "cors-origin", nil, "allowed CORS origin (repeatable; default: local dev origins)")
	return cmd
}

// runServe serves until ctx is cancelled, then shuts down gracefully.
func runServe(ctx context.Context, a *app, opts *serveOptions) error {
	srv := server.NewServer(opts.port).
		WithLogger(a.logger).
		WithDelay(opts.delay).
		WithDevBackend(opts.devBackend).
		WithStreamRate(opts.rate)
	if len(opts.origins) > 0 {
		srv = srv.WithCORS(opts.origins...)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
