// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/midam/playground/internal/backend"
	"github.com/midam/playground/internal/model"
)

// Alert texts. Failures are reported with these fixed strings only; the
// error itself goes to the log.
const (
	AlertFetchChats  = "Failed to fetch chats"
	AlertLoadHistory = "Failed to load chat history"
	AlertSendMessage = "Failed to send message"
	AlertDeleteChat  = "Failed to delete chat"
	AlertCreateChat  = "Failed to create chat"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionsRefreshedMsg carries a fetched session list.
type SessionsRefreshedMsg struct {
	Sessions []*model.Session
	Err      error
}

// SessionCreatedMsg reports a created session. PendingText is the message
// that triggered the creation and should be sent into it.
type SessionCreatedMsg struct {
	Session     *model.Session
	PendingText string
	Err         error
}

// HistoryLoadedMsg carries the history of a session being opened. History
// is nil when the session was already loaded.
type HistoryLoadedMsg struct {
	SessionID string
	History   *model.Session
	Err       error
}

// SessionDeletedMsg reports a finished delete on the backend.
type SessionDeletedMsg struct {
	SessionID string
	Err       error
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamChunkMsg delivers one chunk of a reply. SessionID and MessageID name
// the assistant message the chunk belongs to.
type StreamChunkMsg struct {
	SessionID string
	MessageID string
	Chunk     backend.StreamChunk

	stream <-chan tea.Msg
}

// StreamDoneMsg ends a reply. Err is nil on a clean finish.
type StreamDoneMsg struct {
	SessionID string
	MessageID string
	Err       error
}

// StreamTickMsg triggers a throttled re-render while streaming.
type StreamTickMsg struct{}

// =============================================================================
// MISC MESSAGES
// =============================================================================

// ConfigReloadedMsg carries a new model catalogue after the config file
// changed on disk. Its default becomes the selected model unless the user
// picked one that the catalogue still lists.
type ConfigReloadedMsg struct {
	Catalog *model.Catalog
}

// CopyResultMsg reports a clipboard write.
type CopyResultMsg struct {
	Err error
}
