// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/ui/styles"
)

// ThinkingText is shown in place of an assistant reply that has not produced
// any text yet.
const ThinkingText = "Thinking..."

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

type renderCacheEntry struct {
	content  string
	rendered string
}

// MarkdownRenderer renders assistant replies with glamour. Output is cached
// per message id and invalidated when the content or width changes. Not safe
// for concurrent use; the chat model owns it.
type MarkdownRenderer struct {
	style string
	width int
	term  *glamour.TermRenderer
	err   error
	cache map[string]renderCacheEntry
}

// NewMarkdownRenderer creates a renderer for a glamour standard style name
// ("dark", "light", "notty").
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	return &MarkdownRenderer{
		style: style,
		width: 80,
		cache: make(map[string]renderCacheEntry),
	}
}

// SetWidth sets the wrap width. A change drops the cache.
func (m *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == m.width {
		return
	}
	m.width = width
	m.term = nil
	m.err = nil
	m.cache = make(map[string]renderCacheEntry)
}

// Width returns the wrap width.
func (m *MarkdownRenderer) Width() int {
	return m.width
}

// Render renders markdown. If glamour cannot be set up or fails on the
// input, the text is word-wrapped as is with fenced code highlighted.
func (m *MarkdownRenderer) Render(md string) string {
	if m.term == nil && m.err == nil {
		m.term, m.err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(m.width),
		)
	}
	if m.err == nil {
		if out, err := m.term.Render(md); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return PlainRender(md, m.width)
}

// RenderMessage renders a message body, using the cache for unchanged
// content.
func (m *MarkdownRenderer) RenderMessage(msg *model.Message) string {
	if e, ok := m.cache[msg.ID]; ok && e.content == msg.Content {
		return e.rendered
	}
	out := m.Render(msg.Content)
	m.cache[msg.ID] = renderCacheEntry{content: msg.Content, rendered: out}
	return out
}

// Forget drops cached output for message ids no longer shown.
func (m *MarkdownRenderer) Forget(keep []*model.Message) {
	live := make(map[string]bool, len(keep))
	for _, msg := range keep {
		live[msg.ID] = true
	}
	for id := range m.cache {
		if !live[id] {
			delete(m.cache, id)
		}
	}
}

// PlainRender is the non-markdown fallback.
func PlainRender(text string, width int) string {
	return ParseCodeBlocks(text, width)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// TranscriptOptions carries what the transcript needs at render time.
type TranscriptOptions struct {
	Width    int
	Theme    *styles.Theme
	Markdown *MarkdownRenderer

	// PendingID is the assistant message currently being streamed into
	PendingID string

	// Spinner is the current spinner frame for the pending message
	Spinner string
}

// RenderTranscript renders messages in order. No messages renders as the
// empty string.
func RenderTranscript(msgs []*model.Message, opts TranscriptOptions) string {
	if len(msgs) == 0 {
		return ""
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	width := opts.Width
	if width < 20 {
		width = 20
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		blocks = append(blocks, renderMessage(msg, width, theme, opts))
	}
	return strings.Join(blocks, "\n\n")
}

func renderMessage(msg *model.Message, width int, theme *styles.Theme, opts TranscriptOptions) string {
	label := theme.RoleLabel.Render(msg.Role.DisplayName())
	if ts := msg.FormatTimestamp(); ts != "" {
		label += " " + theme.Timestamp.Render(ts)
	}

	var body string
	switch {
	case msg.IsUser():
		body = theme.UserBubble.Render(wordWrap(msg.Content, width-4))
	case msg.IsEmpty() && msg.ID == opts.PendingID:
		body = theme.AssistantBlock.Render(opts.Spinner + " " + theme.ThinkingText.Render(ThinkingText))
	case opts.Markdown != nil:
		body = theme.AssistantBlock.Render(opts.Markdown.RenderMessage(msg))
	default:
		body = theme.AssistantBlock.Render(PlainRender(msg.Content, width-2))
	}

	if msg.IsUser() {
		return lipgloss.JoinVertical(lipgloss.Right, label, body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, label, body)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// wordWrap wraps text to width display cells, keeping existing line breaks.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		current := words[0]
		for _, word := range words[1:] {
			if runewidth.StringWidth(current)+1+runewidth.StringWidth(word) <= width {
				current += " " + word
				continue
			}
			result.WriteString(current)
			result.WriteString("\n")
			current = word
		}
		result.WriteString(current)
	}
	return result.String()
}
