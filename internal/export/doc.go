// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat and its history to a file.
//
// # Supported Formats
//
//   - Markdown: human-readable, replies kept as the markdown they are
//   - JSON: machine-readable with ids and timestamps
//
// # Usage
//
//	exporter, err := export.ForFormat("md", nil)
//	path, err := export.ExportToFile(sess, exporter, nil)
package export
