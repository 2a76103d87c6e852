// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/midam/playground/internal/ui/styles"
)

// AppTitle is the title shown in the header.
const AppTitle = "Midam's Playground"

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the single-line title bar: title on the left, the current model
// on the right.
type Header struct {
	Title     string
	ModelName string
	Width     int
	theme     *styles.Theme
}

// NewHeader creates a header with the application title.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: AppTitle,
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetModel updates the current model display name.
func (h *Header) SetModel(name string) {
	h.ModelName = name
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}

	title := h.theme.HeaderTitle.Render(h.Title)
	badge := ""
	if h.ModelName != "" {
		badge = h.theme.ModelBadge.Render(h.ModelName)
	}

	// Header has horizontal padding of 1 on each side.
	inner := width - 2
	gap := inner - lipgloss.Width(title) - lipgloss.Width(badge)
	if gap < 1 {
		// Too narrow for both; the model badge wins.
		if badge != "" {
			return h.theme.Header.Width(width).Render(badge)
		}
		gap = 1
	}
	line := title + lipgloss.NewStyle().Width(gap).Render("") + badge
	return h.theme.Header.Width(width).Render(line)
}
