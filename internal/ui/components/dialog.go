// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/midam/playground/internal/ui/styles"
)

// Delete confirmation copy.
const (
	DeleteDialogTitle = "Delete Chat"
	DeleteDialogBody  = "Are you sure you want to delete this chat? This action cannot be undone."
)

// DialogKind selects the dialog layout.
type DialogKind int

const (
	// DialogConfirm asks a yes/no question
	DialogConfirm DialogKind = iota
	// DialogAlert reports a failure and only needs dismissing
	DialogAlert
)

// Dialog is a modal box centred over the screen.
type Dialog struct {
	Kind  DialogKind
	Title string
	Body  string

	// Target is the session id a confirm dialog acts on
	Target string
}

// NewDeleteDialog builds the delete confirmation for a session.
func NewDeleteDialog(sessionID string) *Dialog {
	return &Dialog{
		Kind:   DialogConfirm,
		Title:  DeleteDialogTitle,
		Body:   DeleteDialogBody,
		Target: sessionID,
	}
}

// NewAlert builds a failure alert.
func NewAlert(message string) *Dialog {
	return &Dialog{Kind: DialogAlert, Title: message}
}

// View renders the dialog box (not yet placed on screen).
func (d *Dialog) View(theme *styles.Theme, width int) string {
	boxWidth := 56
	if width > 0 && width-4 < boxWidth {
		boxWidth = width - 4
	}
	if boxWidth < 20 {
		boxWidth = 20
	}

	parts := []string{theme.DialogTitle.Render(d.Title)}
	if d.Body != "" {
		parts = append(parts, theme.DialogBody.Width(boxWidth-6).Render(d.Body))
	}

	var hint string
	switch d.Kind {
	case DialogConfirm:
		hint = theme.DialogButton.Render("y Delete") + "  " + theme.ShortcutDesc.Render("n Cancel")
	default:
		hint = theme.ShortcutDesc.Render("enter Dismiss")
	}
	parts = append(parts, "", hint)

	box := theme.DialogBox
	if d.Kind == DialogAlert {
		box = theme.AlertBox
	}
	return box.Width(boxWidth).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Overlay places the dialog in the middle of a width x height area.
func (d *Dialog) Overlay(theme *styles.Theme, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, d.View(theme, width))
}
