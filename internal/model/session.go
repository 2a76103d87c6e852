// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"time"
)

// DefaultSessionName is shown for sessions the backend has not titled yet.
const DefaultSessionName = "Untitled Chat"

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is one conversation thread.
//
// Messages are append-only and kept in chronological order. They are empty
// until the session is opened and its history loaded (Loaded is then true).
// While a reply is streaming, the last message is the in-progress assistant
// message.
type Session struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	Messages  []*Message `json:"messages,omitempty"`

	// Loaded is set once history has been fetched for this session.
	Loaded bool `json:"-"`
}

// NewSession creates a session with no messages.
func NewSession(id, name string, createdAt time.Time) *Session {
	return &Session{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// DisplayName returns the session name, falling back to DefaultSessionName.
func (s *Session) DisplayName() string {
	if s.Name == "" {
		return DefaultSessionName
	}
	return s.Name
}

// Append adds a message to the end of the session.
func (s *Session) Append(msg *Message) {
	if msg == nil {
		return
	}
	s.Messages = append(s.Messages, msg)
}

// Last returns the most recent message, or nil when the session is empty.
func (s *Session) Last() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// OverwriteLastAssistant replaces the content of the last message with
// content, provided that message is an assistant message.
// Returns false and leaves the session untouched otherwise.
func (s *Session) OverwriteLastAssistant(content string) bool {
	last := s.Last()
	if last == nil || last.Role != RoleAssistant {
		return false
	}
	last.Content = content
	return true
}

// FindMessage returns the message with the given ID, or nil.
func (s *Session) FindMessage(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// SetMessages replaces the message list with loaded history and marks the
// session as loaded.
func (s *Session) SetMessages(msgs []*Message) {
	s.Messages = msgs
	s.Loaded = true
}

// Len returns the number of messages.
func (s *Session) Len() int {
	return len(s.Messages)
}

// IsEmpty reports whether the session has no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// LastAssistant returns the most recent assistant message with content.
func (s *Session) LastAssistant() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == RoleAssistant && !m.IsEmpty() {
			return m
		}
	}
	return nil
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	if s.Messages != nil {
		c.Messages = make([]*Message, len(s.Messages))
		for i, m := range s.Messages {
			c.Messages[i] = m.Clone()
		}
	}
	return &c
}
