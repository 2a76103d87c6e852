// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/midam/playground/internal/backend"
	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/session"
	"github.com/midam/playground/internal/ui/components"
	"github.com/midam/playground/internal/ui/styles"
)

// Composer placeholders.
const (
	PlaceholderReady   = "Type your message..."
	PlaceholderWaiting = "Waiting for reply..."
)

// clipboardWriteAll is swapped out in tests.
var clipboardWriteAll = clipboard.WriteAll

// Backend is everything the chat screen needs from the chat backend.
// *backend.Client satisfies it.
type Backend interface {
	session.Backend
	SendMessage(ctx context.Context, chatID, text, modelID string, callback backend.StreamCallback) error
}

// focusArea is the pane receiving keys.
type focusArea int

const (
	focusComposer focusArea = iota
	focusSidebar
)

// Options configures a new chat Model.
type Options struct {
	// Catalog is the model catalogue; nil uses the built-in list
	Catalog *model.Catalog

	// ModelID is the initially selected model; empty uses the catalogue default
	ModelID string

	Logger *slog.Logger

	// Context bounds every backend call; nil uses context.Background()
	Context context.Context

	ShowSidebar  bool
	SidebarWidth int

	// Theme is "auto", "dark" or "light"
	Theme string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx     context.Context
	backend Backend
	loader  *session.Loader
	dir     *session.Directory
	catalog *model.Catalog
	modelID string
	logger  *slog.Logger

	// modelPicked is set once the user switches models; a config reload
	// then keeps their choice instead of the new default.
	modelPicked bool

	// Components
	theme    *styles.Theme
	header   *components.Header
	sidebar  *components.Sidebar
	markdown *components.MarkdownRenderer
	toasts   *components.ToastManager
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap

	// Layout
	width        int
	height       int
	showSidebar  bool
	sidebarWidth int
	focus        focusArea

	// Modal dialog (delete confirm or failure alert); nil when closed
	dialog *components.Dialog

	// Request state
	creating bool
	stream   *streamState

	// Throttled rendering
	dirty       bool
	tickPending bool

	toastTicking bool
}

// New creates the chat screen for b.
func New(b Backend, opts Options) Model {
	if opts.Catalog == nil {
		opts.Catalog = model.NewCatalog(nil, "")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = 30
	}
	modelID := opts.ModelID
	if _, ok := opts.Catalog.Lookup(modelID); !ok {
		modelID = opts.Catalog.Default().ID
	}

	styles.ApplyMode(opts.Theme)
	theme := styles.NewTheme()

	dir := session.NewDirectory()

	input := textinput.New()
	input.Placeholder = PlaceholderReady
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:          opts.Context,
		backend:      b,
		loader:       session.NewLoader(b, dir, opts.Logger),
		dir:          dir,
		catalog:      opts.Catalog,
		modelID:      modelID,
		logger:       opts.Logger,
		theme:        theme,
		header:       components.NewHeader(theme),
		sidebar:      components.NewSidebar(theme),
		markdown:     components.NewMarkdownRenderer(styles.GlamourStyle(opts.Theme)),
		toasts:       components.NewToastManager(),
		viewport:     viewport.New(80, 20),
		input:        input,
		spinner:      sp,
		help:         help.New(),
		keys:         DefaultKeyMap(),
		showSidebar:  opts.ShowSidebar,
		sidebarWidth: opts.SidebarWidth,
		focus:        focusComposer,
	}
	m.header.SetModel(m.catalog.DisplayName(m.modelID))
	return m
}

// Init loads the session list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), textinput.Blink)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Directory returns the session directory.
func (m Model) Directory() *session.Directory {
	return m.dir
}

// ModelID returns the selected model id.
func (m Model) ModelID() string {
	return m.modelID
}

// IsStreaming reports whether a reply is in flight.
func (m Model) IsStreaming() bool {
	return m.stream != nil
}

// ComposerEnabled reports whether the composer accepts a send.
func (m Model) ComposerEnabled() bool {
	return m.stream == nil && !m.creating
}

// Dialog returns the open dialog, or nil.
func (m Model) Dialog() *components.Dialog {
	return m.dialog
}

// =============================================================================
// COMMANDS
// =============================================================================

// Commands only talk to the backend. Their results are applied to the
// directory in Update, so sessions are never written off the Update
// goroutine.

func (m Model) refreshCmd() tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		list, err := loader.FetchList(ctx)
		return SessionsRefreshedMsg{Sessions: list, Err: err}
	}
}

func (m Model) createCmd(pendingText string) tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		sess, err := loader.RequestCreate(ctx)
		return SessionCreatedMsg{Session: sess, PendingText: pendingText, Err: err}
	}
}

func (m Model) openCmd(id string) tea.Cmd {
	if !m.loader.NeedsHistory(id) {
		return func() tea.Msg { return HistoryLoadedMsg{SessionID: id} }
	}
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		hist, err := loader.FetchHistory(ctx, id)
		return HistoryLoadedMsg{SessionID: id, History: hist, Err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		return SessionDeletedMsg{SessionID: id, Err: loader.RequestDelete(ctx, id)}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopyResultMsg{Err: clipboardWriteAll(text)}
	}
}
