// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midam/playground/internal/backend"
	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/ui/components"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type sendCall struct {
	chatID  string
	text    string
	modelID string
}

type fakeBackend struct {
	mu       sync.Mutex
	sessions []*model.Session
	nextID   int
	sends    []sendCall
	creates  int

	reply []string
	gate  chan struct{}

	failList   error
	failCreate error
	failDelete error
	failSend   error
}

func newFakeBackend(ids ...string) *fakeBackend {
	fb := &fakeBackend{reply: []string{"Hello", " world"}}
	for _, id := range ids {
		fb.sessions = append(fb.sessions, model.NewSession(id, "chat "+id, time.Now()))
	}
	return fb
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]*model.Session, len(f.sessions))
	for i, s := range f.sessions {
		out[i] = model.NewSession(s.ID, s.Name, s.CreatedAt)
	}
	return out, nil
}

func (f *fakeBackend) CreateSession(ctx context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.nextID++
	s := model.NewSession(fmt.Sprintf("new-%d", f.nextID), model.DefaultSessionName, time.Now())
	f.sessions = append([]*model.Session{s}, f.sessions...)
	return model.NewSession(s.ID, s.Name, s.CreatedAt), nil
}

func (f *fakeBackend) History(ctx context.Context, id string) (*model.Session, error) {
	s := model.NewSession(id, "", time.Time{})
	s.SetMessages([]*model.Message{
		model.NewMessage(model.RoleUser, "earlier question"),
		model.NewMessage(model.RoleAssistant, "earlier answer"),
	})
	return s, nil
}

func (f *fakeBackend) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	for i, s := range f.sessions {
		if s.ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, chatID, text, modelID string, cb backend.StreamCallback) error {
	f.mu.Lock()
	f.sends = append(f.sends, sendCall{chatID: chatID, text: text, modelID: modelID})
	gate, reply, failSend := f.gate, f.reply, f.failSend
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failSend != nil {
		return failSend
	}

	var acc strings.Builder
	for i, part := range reply {
		acc.WriteString(part)
		cb(backend.StreamChunk{Index: i, Text: part, Accumulated: acc.String()})
	}
	return nil
}

func (f *fakeBackend) sendCalls() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.sends...)
}

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(fb *fakeBackend) Model {
	m := New(fb, Options{ShowSidebar: true, SidebarWidth: 30, Theme: "dark"})
	return update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(m Model, text string) Model {
	return update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runCmd runs cmd with a deadline. Timer-driven commands that outlive it
// (cursor blink, toast expiry) yield nil.
func runCmd(cmd tea.Cmd) tea.Msg {
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(300 * time.Millisecond):
		return nil
	}
}

// pump drives cmd to completion, feeding the chat's own messages back into
// Update. Spinner, blink and toast ticks are dropped so the loop ends.
func pump(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for rounds := 0; len(queue) > 0; rounds++ {
		require.Less(t, rounds, 500, "pump did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := runCmd(c).(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case SessionsRefreshedMsg, SessionCreatedMsg, HistoryLoadedMsg, SessionDeletedMsg,
			StreamChunkMsg, StreamDoneMsg, StreamTickMsg, CopyResultMsg:
			next, nextCmd := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nextCmd)
		}
	}
	return m
}

// =============================================================================
// TESTS
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	m := New(newFakeBackend(), Options{Theme: "dark"})

	assert.Equal(t, model.DefaultModelID, m.ModelID())
	assert.True(t, m.ComposerEnabled())
	assert.False(t, m.IsStreaming())
	assert.Nil(t, m.Dialog())
	assert.Equal(t, "Loading...", m.View())
}

func TestNew_UnknownModelFallsBack(t *testing.T) {
	m := New(newFakeBackend(), Options{ModelID: "nope", Theme: "dark"})
	assert.Equal(t, model.DefaultModelID, m.ModelID())
}

func TestInit_LoadsSessions(t *testing.T) {
	m := newTestModel(newFakeBackend("a", "b"))
	m = pump(t, m, m.Init())

	assert.Equal(t, 2, m.Directory().Len())
	assert.Nil(t, m.Directory().Active())
	assert.Nil(t, m.Dialog())
}

func TestView_Landing(t *testing.T) {
	m := newTestModel(newFakeBackend("a"))
	m = pump(t, m, m.Init())

	view := m.View()
	assert.Contains(t, view, components.AppTitle)
	assert.Contains(t, view, components.LandingTitle)
	assert.Contains(t, view, "Chats")
}

func TestSend_FromLandingCreatesSession(t *testing.T) {
	fb := newFakeBackend()
	m := newTestModel(fb)

	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.ComposerEnabled(), "composer locked while creating")

	m = pump(t, m, cmd)

	sess := m.Directory().Active()
	require.NotNil(t, sess)
	assert.Equal(t, "new-1", sess.ID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "hello", sess.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, "Hello world", sess.Messages[1].Content)

	calls := fb.sendCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, sendCall{chatID: "new-1", text: "hello", modelID: model.DefaultModelID}, calls[0])

	assert.False(t, m.IsStreaming())
	assert.True(t, m.ComposerEnabled())
	assert.Equal(t, PlaceholderReady, m.input.Placeholder)
	assert.Empty(t, m.input.Value())
}

func TestSend_LongInputNotTruncated(t *testing.T) {
	fb := newFakeBackend()
	m := newTestModel(fb)

	long := strings.Repeat("word ", 2000) + "end"
	m = typeText(m, long)
	assert.Equal(t, long, m.input.Value())

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)

	calls := fb.sendCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, long, calls[0].text)
	assert.Equal(t, long, m.Directory().Active().Messages[0].Content)
}

func TestSend_EmptyInputIgnored(t *testing.T) {
	fb := newFakeBackend()
	m := newTestModel(fb)

	m = typeText(m, "   ")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, m.ComposerEnabled())
	assert.Zero(t, fb.creates)
}

func TestSend_ComposerLockedWhileStreaming(t *testing.T) {
	fb := newFakeBackend()
	fb.gate = make(chan struct{})
	m := newTestModel(fb)

	m = typeText(m, "first")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	created := runCmd(cmd)
	require.IsType(t, SessionCreatedMsg{}, created)
	m, streamCmd := press(m, tea.KeyMsg{Type: tea.KeyEnter}) // ignored: still creating
	assert.Nil(t, streamCmd)

	next, streamCmd := m.Update(created)
	m = next.(Model)
	require.True(t, m.IsStreaming())
	assert.False(t, m.ComposerEnabled())
	assert.Equal(t, PlaceholderWaiting, m.input.Placeholder)

	m = typeText(m, "second")
	assert.Empty(t, m.input.Value(), "typing is dropped while streaming")
	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	close(fb.gate)
	m = pump(t, m, streamCmd)

	assert.False(t, m.IsStreaming())
	assert.Len(t, fb.sendCalls(), 1)
	assert.Equal(t, "Hello world", m.Directory().Active().Last().Content)
}

func TestStreamChunk_OverwritesNotAppends(t *testing.T) {
	fb := newFakeBackend()
	fb.reply = []string{"a", "b", "c"}
	m := newTestModel(fb)

	m = typeText(m, "go")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)

	last := m.Directory().Active().Last()
	assert.Equal(t, "abc", last.Content)
}

func TestStreamChunk_StaleMessageIgnored(t *testing.T) {
	m := newTestModel(newFakeBackend())
	m = typeText(m, "go")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)

	sess := m.Directory().Active()
	m = update(m, StreamChunkMsg{
		SessionID: sess.ID,
		MessageID: "some-other-message",
		Chunk:     backend.StreamChunk{Accumulated: "stray"},
	})
	assert.Equal(t, "Hello world", sess.Last().Content)
}

func TestSend_FailureShowsAlert(t *testing.T) {
	fb := newFakeBackend()
	fb.failSend = errors.New("boom")
	m := newTestModel(fb)

	m = typeText(m, "hi")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)

	require.NotNil(t, m.Dialog())
	assert.Equal(t, components.DialogAlert, m.Dialog().Kind)
	assert.Equal(t, AlertSendMessage, m.Dialog().Title)
	assert.True(t, m.ComposerEnabled())
	assert.Contains(t, m.View(), AlertSendMessage)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, m.Dialog())
}

func TestRefresh_FailureShowsAlert(t *testing.T) {
	fb := newFakeBackend()
	fb.failList = errors.New("down")
	m := newTestModel(fb)
	m = pump(t, m, m.Init())

	require.NotNil(t, m.Dialog())
	assert.Equal(t, AlertFetchChats, m.Dialog().Title)
}

func TestCreate_FailureKeepsInput(t *testing.T) {
	fb := newFakeBackend()
	fb.failCreate = errors.New("nope")
	m := newTestModel(fb)

	m = typeText(m, "keep me")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)

	require.NotNil(t, m.Dialog())
	assert.Equal(t, AlertCreateChat, m.Dialog().Title)
	assert.Equal(t, "keep me", m.input.Value())
	assert.True(t, m.ComposerEnabled())
	assert.Nil(t, m.Directory().Active())
}

func TestSidebar_OpenLoadsHistory(t *testing.T) {
	m := newTestModel(newFakeBackend("a", "b"))
	m = pump(t, m, m.Init())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = pump(t, m, cmd)

	sess := m.Directory().Active()
	require.NotNil(t, sess)
	assert.Equal(t, "b", sess.ID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "earlier answer", sess.Messages[1].Content)
}

func TestSidebar_DeleteActiveReturnsToLanding(t *testing.T) {
	fb := newFakeBackend("a", "b")
	m := newTestModel(fb)
	m = pump(t, m, m.Init())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)
	require.Equal(t, "a", m.Directory().ActiveID())

	m, _ = press(m, runes("d"))
	require.NotNil(t, m.Dialog())
	assert.Equal(t, components.DialogConfirm, m.Dialog().Kind)
	assert.Equal(t, "a", m.Dialog().Target)

	m, cmd = press(m, runes("y"))
	assert.Nil(t, m.Dialog())
	m = pump(t, m, cmd)

	assert.Nil(t, m.Directory().Active())
	assert.Equal(t, 1, m.Directory().Len())
	assert.Contains(t, m.View(), components.LandingTitle)
}

func TestSidebar_DeleteOpenSessionWhileStreaming(t *testing.T) {
	fb := newFakeBackend("a", "b")
	fb.gate = make(chan struct{})
	m := newTestModel(fb)
	m = pump(t, m, m.Init())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)
	require.Equal(t, "a", m.Directory().ActiveID())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "hi")
	m, streamCmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.IsStreaming())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(m, runes("d"))
	require.NotNil(t, m.Dialog())
	m, cmd = press(m, runes("y"))
	m = pump(t, m, cmd)

	// The cancelled reply finishes without a failure alert.
	m = pump(t, m, streamCmd)

	assert.Nil(t, m.Dialog())
	assert.False(t, m.IsStreaming())
	assert.True(t, m.ComposerEnabled())
	assert.Empty(t, m.Directory().ActiveID())
	assert.Equal(t, []string{"b"}, m.Directory().IDs())
	assert.Contains(t, m.View(), components.LandingTitle)
}

func TestSidebar_OpenAfterRefreshDuringHistory(t *testing.T) {
	m := newTestModel(newFakeBackend("a", "b"))
	m = pump(t, m, m.Init())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, openCmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, openCmd)
	loaded := runCmd(openCmd)
	require.IsType(t, HistoryLoadedMsg{}, loaded)

	// A list refresh lands between the history fetch and its message.
	m = pump(t, m, m.refreshCmd())
	m = update(m, loaded)

	sess := m.Directory().Active()
	require.NotNil(t, sess)
	assert.Equal(t, "a", sess.ID)
	assert.True(t, sess.Loaded)
	assert.Len(t, sess.Messages, 2)
}

func TestSidebar_DeleteDismissed(t *testing.T) {
	m := newTestModel(newFakeBackend("a"))
	m = pump(t, m, m.Init())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(m, runes("d"))
	require.NotNil(t, m.Dialog())

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.Nil(t, m.Dialog())
	assert.Equal(t, 1, m.Directory().Len())
}

func TestSidebar_DeleteFailureShowsAlert(t *testing.T) {
	fb := newFakeBackend("a")
	fb.failDelete = errors.New("locked")
	m := newTestModel(fb)
	m = pump(t, m, m.Init())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(m, runes("d"))
	m, cmd := press(m, runes("y"))
	m = pump(t, m, cmd)

	require.NotNil(t, m.Dialog())
	assert.Equal(t, AlertDeleteChat, m.Dialog().Title)
	assert.Equal(t, 1, m.Directory().Len())
}

func TestNewChat_ClearsActive(t *testing.T) {
	m := newTestModel(newFakeBackend())
	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)
	require.NotNil(t, m.Directory().Active())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Nil(t, m.Directory().Active())
	assert.Equal(t, 1, m.Directory().Len())
}

func TestCycleModel(t *testing.T) {
	m := newTestModel(newFakeBackend())
	catalog := model.NewCatalog(nil, "")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, catalog.Next(model.DefaultModelID).ID, m.ModelID())
	assert.Contains(t, m.header.View(), catalog.DisplayName(m.ModelID()))

	for i := 1; i < catalog.Len(); i++ {
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	}
	assert.Equal(t, model.DefaultModelID, m.ModelID())
}

func TestSend_UsesSelectedModel(t *testing.T) {
	fb := newFakeBackend()
	m := newTestModel(fb)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})

	m = typeText(m, "hi")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)

	calls := fb.sendCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, m.ModelID(), calls[0].modelID)
	assert.NotEqual(t, model.DefaultModelID, calls[0].modelID)
}

func TestCopyReply(t *testing.T) {
	var copied string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { clipboardWriteAll = orig })

	m := newTestModel(newFakeBackend())
	m = typeText(m, "hi")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = pump(t, m, cmd)

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	m = pump(t, m, cmd)

	assert.Equal(t, "Hello world", copied)
	toasts := m.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, "Copied reply", toasts[0].Message)
}

func TestCopyReply_NothingToCopy(t *testing.T) {
	called := false
	orig := clipboardWriteAll
	clipboardWriteAll = func(string) error {
		called = true
		return nil
	}
	t.Cleanup(func() { clipboardWriteAll = orig })

	m := newTestModel(newFakeBackend())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlY})

	assert.False(t, called)
	toasts := m.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, "Nothing to copy", toasts[0].Message)
}

func TestCopyReply_ClipboardFailure(t *testing.T) {
	m := newTestModel(newFakeBackend())
	m = update(m, CopyResultMsg{Err: errors.New("no clipboard")})

	toasts := m.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, components.ToastKindWarning, toasts[0].Kind)
	assert.Nil(t, m.Dialog())
}

func TestConfigReloaded(t *testing.T) {
	m := newTestModel(newFakeBackend())

	catalog := model.NewCatalog([]model.ModelOption{
		{ID: "local-llm", Name: "Local LLM"},
	}, "local-llm")
	m = update(m, ConfigReloadedMsg{Catalog: catalog})

	assert.Equal(t, "local-llm", m.ModelID())
	assert.Equal(t, "Local LLM", m.header.ModelName)

	// A changed default is applied while the user has not picked a model.
	both := []model.ModelOption{
		{ID: "other", Name: "Other"},
		{ID: "local-llm", Name: "Local LLM"},
	}
	m = update(m, ConfigReloadedMsg{Catalog: model.NewCatalog(both, "other")})
	assert.Equal(t, "other", m.ModelID())
	assert.Equal(t, "Other", m.header.ModelName)
}

func TestConfigReloaded_KeepsPickedModel(t *testing.T) {
	m := newTestModel(newFakeBackend())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	picked := m.ModelID()
	require.NotEqual(t, model.DefaultModelID, picked)

	m = update(m, ConfigReloadedMsg{Catalog: model.NewCatalog(nil, model.DefaultModelID)})
	assert.Equal(t, picked, m.ModelID(), "user choice survives a reload that still lists it")

	m = update(m, ConfigReloadedMsg{Catalog: model.NewCatalog([]model.ModelOption{
		{ID: "local-llm", Name: "Local LLM"},
	}, "local-llm")})
	assert.Equal(t, "local-llm", m.ModelID(), "a removed choice falls back to the default")
}

func TestToggleSidebar(t *testing.T) {
	m := newTestModel(newFakeBackend("a"))
	require.True(t, m.sidebarVisible())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusSidebar, m.focus)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlB})
	assert.False(t, m.sidebarVisible())
	assert.Equal(t, focusComposer, m.focus)
	assert.Equal(t, 120, m.viewport.Width)
}

func TestNarrowWindowHidesSidebar(t *testing.T) {
	m := newTestModel(newFakeBackend())
	m = update(m, tea.WindowSizeMsg{Width: 50, Height: 20})

	assert.False(t, m.sidebarVisible())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusComposer, m.focus)
}
