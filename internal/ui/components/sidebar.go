// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/ui/styles"
)

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// Sidebar renders the session list. Selection is a cursor into the list and
// is independent of which session is open.
type Sidebar struct {
	Width   int
	Height  int
	Focused bool

	sessions []*model.Session
	activeID string
	cursor   int
	offset   int
	theme    *styles.Theme
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{Width: 30, Height: 20, theme: theme}
}

// SetSize sets the outer size of the sidebar including its border.
func (s *Sidebar) SetSize(width, height int) {
	s.Width = width
	s.Height = height
	s.clamp()
}

// SetSessions replaces the listed sessions. The cursor stays on the same
// session id when it is still listed.
func (s *Sidebar) SetSessions(sessions []*model.Session, activeID string) {
	selected := s.SelectedID()
	s.sessions = sessions
	s.activeID = activeID

	s.cursor = 0
	for i, sess := range sessions {
		if sess.ID == selected {
			s.cursor = i
			break
		}
	}
	s.clamp()
}

// Len returns the number of listed sessions.
func (s *Sidebar) Len() int {
	return len(s.sessions)
}

// Cursor returns the selected row.
func (s *Sidebar) Cursor() int {
	return s.cursor
}

// SelectedID returns the id under the cursor, or "".
func (s *Sidebar) SelectedID() string {
	if s.cursor < 0 || s.cursor >= len(s.sessions) {
		return ""
	}
	return s.sessions[s.cursor].ID
}

// Select moves the cursor to id. Returns false when it is not listed.
func (s *Sidebar) Select(id string) bool {
	for i, sess := range s.sessions {
		if sess.ID == id {
			s.cursor = i
			s.clamp()
			return true
		}
	}
	return false
}

// MoveUp moves the cursor up one row.
func (s *Sidebar) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
	s.clamp()
}

// MoveDown moves the cursor down one row.
func (s *Sidebar) MoveDown() {
	if s.cursor < len(s.sessions)-1 {
		s.cursor++
	}
	s.clamp()
}

// visibleRows is the number of session rows that fit.
func (s *Sidebar) visibleRows() int {
	// border (2) + title line + margin
	rows := s.Height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (s *Sidebar) clamp() {
	if s.cursor >= len(s.sessions) {
		s.cursor = len(s.sessions) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	rows := s.visibleRows()
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	box := s.theme.Sidebar
	if s.Focused {
		box = s.theme.SidebarFocused
	}

	// border (2) + padding (2)
	inner := s.Width - 4
	if inner < 8 {
		inner = 8
	}

	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	if len(s.sessions) == 0 {
		b.WriteString(s.theme.SessionMeta.Render("No chats yet"))
	}

	end := s.offset + s.visibleRows()
	if end > len(s.sessions) {
		end = len(s.sessions)
	}
	for i := s.offset; i < end; i++ {
		sess := s.sessions[i]
		marker := "  "
		if sess.ID == s.activeID {
			marker = "> "
		}
		name := runewidth.Truncate(sess.DisplayName(), inner-2, "...")
		row := runewidth.FillRight(marker+name, inner)

		style := s.theme.SessionItem
		switch {
		case i == s.cursor && s.Focused:
			style = s.theme.SessionItemSelected
		case sess.ID == s.activeID:
			style = s.theme.SessionItemActive
		}
		b.WriteString(style.Render(row))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	height := s.Height - 2
	if height < 1 {
		height = 1
	}
	return box.Width(s.Width - 2).Height(height).Render(b.String())
}
