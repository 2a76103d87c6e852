// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the playground TUI.

The chat package implements a Bubble Tea model that talks to the chat backend
through a small Backend interface (satisfied by *backend.Client) and keeps the
session list in a session.Directory.

# Key Components

## Model (model.go)

The Model struct holds all screen state: the session directory, the model
catalogue, the composer, the transcript viewport, the sidebar cursor, the open
dialog and the in-flight stream.

## Update Loop (update.go)

Handles keys, window resizes and the results of backend commands. Every
network call runs in a tea.Cmd; results come back as messages. Failures are
logged and surface as a single modal alert.

## Streaming (streaming.go)

A reply is streamed on a goroutine that posts chunk messages to a channel. The
Update loop reads one message at a time and re-arms the read. Each chunk
overwrites the last assistant message of the session it belongs to; the
transcript is re-rendered at most once per frame.

## View Rendering (view.go)

Header, sidebar, transcript or landing state, composer, toasts and the help
line.

# Usage

	m := chat.New(client, chat.Options{Catalog: cfg.Catalog()})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
