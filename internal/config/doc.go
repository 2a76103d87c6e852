// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration management for playground.
//
// Configuration is loaded from ~/.playground/config.toml (or config.json),
// layered over built-in defaults, then environment overrides.
//
// # Key Types
//
//   - Config: Complete configuration structure
//   - BackendConfig: Chat backend URL, user identity and timeout
//   - ModelsConfig: Model selector catalogue and default
//   - ServerConfig: Mock inference and dev backend settings
//   - LoggingConfig: Rotating log file and level
//
// # Usage
//
//	cfg, err := config.Load()
//	logger, closeLog := config.SetupLogger(cfg.Logging, false)
//	defer closeLog()
//
// # Environment Variables
//
//   - PLAYGROUND_HOME: Config directory (default ~/.playground)
//   - PLAYGROUND_BACKEND_URL: Backend base URL
//   - PLAYGROUND_USER_ID: User identity
//   - PLAYGROUND_MODEL: Default model
//   - PLAYGROUND_PORT: Server port
//   - PLAYGROUND_MOCK_DELAY: Mock delay in milliseconds
//   - PLAYGROUND_LOG_LEVEL: Log level
package config
