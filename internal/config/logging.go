// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level '%s', must be one of: debug, info, warn, error", name)
	}
}

// SetupLogger creates the application logger: JSON to a rotating file and,
// when stderr is true, text to stderr as well. The terminal UI passes false
// so nothing is written over the alternate screen.
// Returns the logger and a cleanup function that closes the file.
func SetupLogger(cfg LoggingConfig, stderr bool) (*slog.Logger, func() error) {
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if stderr || cfg.Stderr {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
	}

	path := cfg.File
	if path == "" {
		path = DefaultLogFile()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		// Fall back to whatever we have; a logger must always come back.
		if len(handlers) == 0 {
			return slog.New(slog.NewTextHandler(io.Discard, opts)), func() error { return nil }
		}
		return slog.New(handlers[0]), func() error { return nil }
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	handlers = append(handlers, slog.NewJSONHandler(file, opts))

	return slog.New(slogmulti.Fanout(handlers...)), file.Close
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
// stderr may be nil.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{slog.NewJSONHandler(file, opts)}
	if stderr != nil {
		handlers = append(handlers, slog.NewTextHandler(stderr, opts))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}
