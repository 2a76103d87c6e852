// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/midam/playground/internal/config"
	"github.com/midam/playground/internal/ui/chat"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the terminal chat client (default)",
		Long: `Start the terminal chat client.

Keys:
  enter      send the message
  tab        switch between the composer and the chat list
  ctrl+n     start a new chat
  ctrl+o     cycle the model
  ctrl+y     copy the last reply
  ctrl+b     show or hide the chat list
  ctrl+c     quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, a)
		},
	}
}

// runTUI starts the Bubble Tea program. Logs go to the log file only so the
// alternate screen stays clean.
func runTUI(cmd *cobra.Command, a *app) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := chat.New(a.client(), chat.Options{
		Catalog:      a.cfg.Catalog(),
		ModelID:      a.cfg.Models.Default,
		Logger:       a.logger,
		Context:      ctx,
		ShowSidebar:  a.cfg.UI.ShowSidebar,
		SidebarWidth: a.cfg.UI.SidebarWidth,
		Theme:        a.cfg.UI.Theme,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	if path := a.watchPath(); path != "" {
		err := config.Watch(ctx, path, a.logger, func(cfg *config.Config) {
			if a.modelID != "" {
				cfg.Models.Default = a.modelID
			}
			p.Send(chat.ConfigReloadedMsg{Catalog: cfg.Catalog()})
		})
		if err != nil {
			a.logger.Warn("config hot reload disabled", "path", path, "err", err)
		}
	}

	a.logger.Info("tui started", "backend", a.cfg.Backend.URL, "model", m.ModelID())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
