// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the session directory: the local list of chat
// sessions for the fixed user and the currently open one.
//
// Directory is a plain state container. Loader performs the backend round
// trips (list, create, delete, open) and applies their results. The terminal
// UI runs the network half inside commands and applies results in its update
// loop; the CLI uses Loader directly.
//
// # Usage
//
//	dir := session.NewDirectory()
//	loader := session.NewLoader(client, dir, logger)
//	if err := loader.Refresh(ctx); err != nil {
//	    return err
//	}
//	sess, err := loader.Create(ctx)
package session
