// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/midam/playground/internal/ui/components"
	"github.com/midam/playground/internal/ui/styles"
)

// Fixed rows around the transcript.
const (
	headerRows   = 1
	statusRows   = 1
	composerRows = 3 // border + input line
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.dialog != nil {
		return m.dialog.Overlay(m.theme, m.width, m.height)
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderBody(),
		m.renderComposer(),
	)
	if m.sidebarVisible() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		main,
		m.renderStatus(),
	)
}

func (m Model) renderBody() string {
	if m.dir.Active() == nil {
		return components.RenderLanding(m.theme, m.mainWidth(), m.viewport.Height)
	}
	return m.viewport.View()
}

func (m Model) renderComposer() string {
	box := m.theme.InputContainer
	if m.focus == focusComposer && m.ComposerEnabled() {
		box = m.theme.InputContainerFocused
	}
	// border (2)
	return box.Width(m.mainWidth() - 2).Render(m.input.View())
}

// renderStatus shows the newest toast, or the key help for the focused pane.
func (m Model) renderStatus() string {
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		return components.RenderToastStack(toasts[:1], m.width)
	}
	var h string
	if m.focus == focusSidebar {
		h = m.help.View(sidebarHelp{m.keys})
	} else {
		h = m.help.View(composerHelp{m.keys})
	}
	return m.theme.StatusBar.Width(m.width).Render(h)
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes every component for the current window.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)
	m.header.SetWidth(m.width)
	m.help.Width = m.width

	bodyHeight := m.height - headerRows - statusRows
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.sidebar.SetSize(m.sidebarWidth, bodyHeight)

	vpHeight := bodyHeight - composerRows
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.mainWidth()
	m.viewport.Height = vpHeight
	m.input.Width = m.mainWidth() - 2 - len(m.input.Prompt) - 1

	m.markdown.SetWidth(m.mainWidth() - 4)
}

// sidebarVisible reports whether the sidebar is drawn. Narrow terminals
// never show it.
func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width > 0 && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

func (m Model) mainWidth() int {
	w := m.width
	if m.sidebarVisible() {
		w -= m.sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// renderTranscript redraws the open session into the viewport.
func (m *Model) renderTranscript() {
	m.dirty = false

	sess := m.dir.Active()
	if sess == nil {
		m.viewport.SetContent("")
		return
	}

	opts := components.TranscriptOptions{
		Width:    m.mainWidth() - 2,
		Theme:    m.theme,
		Markdown: m.markdown,
		Spinner:  m.spinner.View(),
	}
	if m.stream != nil && m.stream.sessionID == sess.ID {
		opts.PendingID = m.stream.messageID
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(components.RenderTranscript(sess.Messages, opts))
	if atBottom {
		m.viewport.GotoBottom()
	}
}
