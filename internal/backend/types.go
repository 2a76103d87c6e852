// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the external chat backend.
package backend

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/midam/playground/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// NewChatRequest is the request body for POST /new_chat.
type NewChatRequest struct {
	UserID string `json:"user_id"`
}

// ChatRequest is the request body for the streamed POST /chat.
type ChatRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	Model  string `json:"model"`
}

// InferenceRequest is the request body for the mock POST /api/chat route.
type InferenceRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	Model  string `json:"model"`
	Image  string `json:"image,omitempty"` // Any non-empty value marks an attached image
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// NewChatResponse is returned by POST /new_chat.
type NewChatResponse struct {
	ChatID string `json:"chat_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ChatSummary is one entry of GET /user_chats/{user_id}.
type ChatSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// HistoryMessage is one stored message in GET /chat_history/{chat_id}.
type HistoryMessage struct {
	Sender    string `json:"sender"`  // "user" or "bot"
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse is returned by GET /chat_history/{chat_id}.
type HistoryResponse struct {
	ChatName string           `json:"chat_name"`
	Messages []HistoryMessage `json:"messages"`
	Error    string           `json:"error,omitempty"`
}

// DeleteResponse is returned by DELETE /delete_chat/{chat_id}.
type DeleteResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// InferenceResponse is returned by the mock POST /api/chat route.
type InferenceResponse struct {
	ChatID    string `json:"chat_id"`
	Response  string `json:"response"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the generic {error} body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// STREAM TYPES
// =============================================================================

// StreamChunk is one chunk of a streamed reply.
type StreamChunk struct {
	// Index is the zero-based position of the chunk in the stream
	Index int

	// Text is the decoded content of this chunk only
	Text string

	// Accumulated is the concatenation of every chunk so far
	Accumulated string

	// Done is set on the final callback, which carries no new text
	Done bool
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ToSession converts a list entry into a session with no loaded messages.
func (c ChatSummary) ToSession() *model.Session {
	return model.NewSession(c.ID, c.Name, ParseTimestamp(c.CreatedAt))
}

// ToMessage converts a stored history entry into a message.
// Stored messages carry no id, so each gets a fresh UUID like a local one.
func (h HistoryMessage) ToMessage() *model.Message {
	return &model.Message{
		ID:        uuid.NewString(),
		Role:      model.ParseSender(h.Sender),
		Content:   h.Message,
		Timestamp: ParseTimestamp(h.Timestamp),
	}
}

// ToMessages converts the whole history in order.
func (r *HistoryResponse) ToMessages() []*model.Message {
	msgs := make([]*model.Message, 0, len(r.Messages))
	for _, h := range r.Messages {
		msgs = append(msgs, h.ToMessage())
	}
	return msgs
}

// timestampLayouts covers RFC3339 and the forms Python emits for
// datetime.isoformat() and str(datetime).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. Unparseable input yields the
// zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
