// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual building blocks of the chat screen.
//
// Components are plain render helpers. They hold no network state and never
// issue commands except for toast expiry ticks; the chat model owns all state
// and passes what a component needs at render time.
//
// # Components
//
//   - Header: title and current model badge
//   - Sidebar: session list with selection and active marker
//   - MarkdownRenderer / RenderTranscript: the transcript
//   - CodeBlock: chroma highlighting for fenced code when glamour fails
//   - Landing: the empty-state prompt shown with no session open
//   - Dialog: delete confirmation and failure alerts
//   - ToastManager: short-lived notices
package components
