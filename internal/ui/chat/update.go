// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/ui/components"
)

// Update handles all messages for the chat screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	// =========================================================================
	// WINDOW
	// =========================================================================

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.renderTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// =========================================================================
	// SESSIONS
	// =========================================================================

	case SessionsRefreshedMsg:
		if msg.Err != nil {
			m.showAlert(AlertFetchChats, msg.Err)
		} else {
			m.loader.ApplyList(msg.Sessions)
		}
		m.syncSidebar()
		return m, nil

	case SessionCreatedMsg:
		m.creating = false
		if msg.Err != nil {
			m.showAlert(AlertCreateChat, msg.Err)
			m.input.Focus()
			return m, nil
		}
		m.loader.ApplyCreate(msg.Session)
		m.syncSidebar()
		m.sidebar.Select(msg.Session.ID)
		m.renderTranscript()
		if msg.PendingText != "" {
			return m, m.beginSend(msg.Session, msg.PendingText)
		}
		return m, nil

	case HistoryLoadedMsg:
		if msg.Err != nil {
			m.showAlert(AlertLoadHistory, msg.Err)
			m.syncSidebar()
			return m, nil
		}
		if m.dir.Get(msg.SessionID) == nil {
			// Deleted while its history was loading.
			return m, nil
		}
		m.loader.ApplyOpen(msg.SessionID, msg.History)
		m.syncSidebar()
		m.markdown.Forget(m.activeMessages())
		m.renderTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case SessionDeletedMsg:
		if msg.Err != nil {
			m.showAlert(AlertDeleteChat, msg.Err)
			return m, nil
		}
		m.loader.ApplyDelete(msg.SessionID)
		if m.stream != nil && m.stream.sessionID == msg.SessionID {
			// The reply has nowhere to go; stop it.
			m.stream.cancel()
		}
		m.syncSidebar()
		m.renderTranscript()
		return m, nil

	// =========================================================================
	// STREAMING
	// =========================================================================

	case StreamChunkMsg:
		m.applyChunk(msg)
		if m.dirty && !m.tickPending {
			m.tickPending = true
			cmds = append(cmds, streamTickCmd())
		}
		cmds = append(cmds, waitForStream(msg.stream))
		return m, tea.Batch(cmds...)

	case StreamTickMsg:
		m.tickPending = false
		if m.dirty {
			m.renderTranscript()
			m.viewport.GotoBottom()
		}
		return m, nil

	case StreamDoneMsg:
		return m, m.finishStream(msg)

	case spinner.TickMsg:
		if m.stream == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.pendingEmpty() {
			m.renderTranscript()
		}
		return m, cmd

	// =========================================================================
	// MISC
	// =========================================================================

	case ConfigReloadedMsg:
		if msg.Catalog == nil {
			return m, nil
		}
		m.catalog = msg.Catalog
		if _, ok := m.catalog.Lookup(m.modelID); !ok || !m.modelPicked {
			m.modelID = m.catalog.Default().ID
		}
		m.header.SetModel(m.catalog.DisplayName(m.modelID))
		return m, m.toast(components.ToastKindStatus, "Config reloaded")

	case CopyResultMsg:
		if msg.Err != nil {
			m.logger.Warn("clipboard write failed", "err", msg.Err)
			return m, m.toast(components.ToastKindWarning, "Clipboard unavailable")
		}
		return m, m.toast(components.ToastKindSuccess, "Copied reply")

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return m, components.ToastTickCmd()
		}
		m.toastTicking = false
		return m, nil
	}

	// Anything else (cursor blink) goes to the composer.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.stream != nil {
			m.stream.cancel()
		}
		return m, tea.Quit
	}

	if m.dialog != nil {
		return m.handleDialogKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar && m.focus == focusSidebar {
			m.setFocus(focusComposer)
		}
		m.layout()
		m.renderTranscript()
		return m, nil

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == focusComposer && m.sidebarVisible() {
			m.setFocus(focusSidebar)
		} else {
			m.setFocus(focusComposer)
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleModel):
		m.modelID = m.catalog.Next(m.modelID).ID
		m.modelPicked = true
		m.header.SetModel(m.catalog.DisplayName(m.modelID))
		return m, nil

	case key.Matches(msg, m.keys.CopyReply):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.NewChat):
		m.goToLanding()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		return m, m.submit()
	}

	if !m.ComposerEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()
	case key.Matches(msg, m.keys.Open):
		id := m.sidebar.SelectedID()
		if id == "" || id == m.dir.ActiveID() {
			return m, nil
		}
		return m, m.openCmd(id)
	case key.Matches(msg, m.keys.Delete):
		if id := m.sidebar.SelectedID(); id != "" {
			m.dialog = components.NewDeleteDialog(id)
		}
	case key.Matches(msg, m.keys.New):
		m.goToLanding()
	}
	return m, nil
}

func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.dialog
	if d.Kind == components.DialogAlert {
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
			m.dialog = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.dialog = nil
		return m, m.deleteCmd(d.Target)
	case key.Matches(msg, m.keys.Dismiss):
		m.dialog = nil
	}
	return m, nil
}

// =============================================================================
// SEND FLOW
// =============================================================================

// submit sends the composer text. Empty input and sends while a request is
// in flight are ignored. With no open session one is created first.
func (m *Model) submit() tea.Cmd {
	if !m.ComposerEnabled() {
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	sess := m.dir.Active()
	if sess == nil {
		m.creating = true
		m.input.Blur()
		return m.createCmd(text)
	}
	return m.beginSend(sess, text)
}

// beginSend appends the user message and an empty assistant message, then
// starts the stream into the latter.
func (m *Model) beginSend(sess *model.Session, text string) tea.Cmd {
	user := model.NewUserMessage(text)
	reply := model.NewAssistantMessage()
	sess.Append(user)
	sess.Append(reply)

	ctx, cancel := context.WithCancel(m.ctx)
	m.stream = &streamState{sessionID: sess.ID, messageID: reply.ID, cancel: cancel}

	m.input.Reset()
	m.input.Blur()
	m.input.Placeholder = PlaceholderWaiting

	m.renderTranscript()
	m.viewport.GotoBottom()

	m.logger.Info("sending message", "chat_id", sess.ID, "model", m.modelID, "chars", len(text))
	return tea.Batch(
		startStream(ctx, m.backend, sess.ID, reply.ID, text, m.modelID),
		m.spinner.Tick,
	)
}

// applyChunk writes the accumulated reply into the message it belongs to.
// The stored session is updated even when it is no longer open; only the
// open one is re-rendered.
func (m *Model) applyChunk(msg StreamChunkMsg) {
	sess := m.dir.Get(msg.SessionID)
	if sess == nil {
		return
	}
	last := sess.Last()
	if last == nil || last.ID != msg.MessageID {
		return
	}
	sess.OverwriteLastAssistant(msg.Chunk.Accumulated)
	if msg.SessionID == m.dir.ActiveID() {
		m.dirty = true
	}
}

// finishStream releases the composer and refreshes the session list so a
// backend-assigned title shows up.
func (m *Model) finishStream(msg StreamDoneMsg) tea.Cmd {
	if m.stream == nil || m.stream.messageID != msg.MessageID {
		return nil
	}
	m.stream.cancel()
	m.stream = nil

	m.input.Placeholder = PlaceholderReady
	if m.focus == focusComposer {
		m.input.Focus()
	}

	if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
		m.showAlert(AlertSendMessage, msg.Err)
	}

	m.renderTranscript()
	m.viewport.GotoBottom()
	return m.refreshCmd()
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) goToLanding() {
	m.dir.ClearActive()
	m.setFocus(focusComposer)
	m.syncSidebar()
	m.renderTranscript()
}

func (m *Model) copyLastReply() tea.Cmd {
	sess := m.dir.Active()
	if sess == nil {
		return m.toast(components.ToastKindStatus, "Nothing to copy")
	}
	last := sess.LastAssistant()
	if last == nil || last.IsEmpty() {
		return m.toast(components.ToastKindStatus, "Nothing to copy")
	}
	return copyCmd(last.Content)
}

func (m *Model) showAlert(text string, err error) {
	m.logger.Error(strings.ToLower(text), "err", err)
	m.dialog = components.NewAlert(text)
}

func (m *Model) toast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Add(kind, text)
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.sidebar.Focused = f == focusSidebar
	if f == focusComposer && m.ComposerEnabled() {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) syncSidebar() {
	m.sidebar.SetSessions(m.dir.List(), m.dir.ActiveID())
}

func (m Model) activeMessages() []*model.Message {
	if sess := m.dir.Active(); sess != nil {
		return sess.Messages
	}
	return nil
}

// pendingEmpty reports whether the open session shows the thinking
// indicator.
func (m Model) pendingEmpty() bool {
	if m.stream == nil || m.stream.sessionID != m.dir.ActiveID() {
		return false
	}
	sess := m.dir.Active()
	if sess == nil {
		return false
	}
	msg := sess.FindMessage(m.stream.messageID)
	return msg != nil && msg.IsEmpty()
}
