// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/midam/playground/internal/ui/styles"
)

// Landing state copy.
const (
	LandingTitle    = "How can I help you today?"
	LandingSubtitle = "Start typing below to begin a new conversation."
)

// RenderLanding renders the empty state centred in width x height.
func RenderLanding(theme *styles.Theme, width, height int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		theme.LandingTitle.Render(LandingTitle),
		"",
		theme.LandingSubtitle.Render(LandingSubtitle),
	)
	if width <= 0 || height <= 0 {
		return content
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
