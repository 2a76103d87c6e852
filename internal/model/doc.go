// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types shared by the backend client,
// the session directory, the terminal UI and the development server.
//
// # Key Types
//
//   - Session: One conversation thread; messages are loaded lazily
//   - Message: Single message with role, content and timestamp
//   - Role: Message role enumeration (user, assistant)
//   - Catalog: The list of models offered by the model selector
//
// # Usage
//
// Build a session and stream into its last message:
//
//	sess := model.NewSession(id, "Untitled Chat", time.Now())
//	sess.Append(model.NewUserMessage("Hello!"))
//	reply := model.NewAssistantMessage()
//	sess.Append(reply)
//	sess.OverwriteLastAssistant("Hi there")
package model
