// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides tracing and latency metrics for backend calls.
//
// Spans and histograms go through the global OpenTelemetry providers. When
// telemetry is disabled the global no-op providers stay installed and the
// instrumentation costs next to nothing. When enabled, Init installs SDK
// providers that export to a rotating local file.
//
// # Usage
//
//	p, err := telemetry.Init(ctx, telemetry.Config{Enabled: true, TraceFile: path})
//	defer p.Shutdown(context.Background())
//
//	ctx, done := telemetry.StartOp(ctx, "list_sessions")
//	err := doCall(ctx)
//	done(err)
//
// # Privacy
//
// Telemetry is local-only and does not transmit any data. Message content is
// never recorded, only operation names, ids and timings.
package telemetry
