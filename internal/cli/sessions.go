// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/midam/playground/internal/export"
	"github.com/midam/playground/internal/model"
)

const (
	sessionIDWidth   = 28
	sessionNameWidth = 34
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "chats"},
		Short:   "Manage chats on the backend",
		Args:    cobra.NoArgs,
	}
	cmd.AddCommand(newSessionsListCmd(a), newSessionsDeleteCmd(a), newSessionsExportCmd(a))
	return cmd
}

func newSessionsListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List chats of the configured user, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := a.client().ListSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list chats: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeSessionsJSON(out, sessions)
			}
			writeSessionsTable(out, sessions)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSessionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <chat-id>...",
		Aliases: []string{"rm"},
		Short:   "Delete chats",
		Long: `Delete one or more chats by id. There is no confirmation and no undo.

Examples:
  playground sessions delete 01HV3K8Z9Q2M7W6X5Y4T3R2P1N`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			for _, id := range args {
				if err := client.DeleteSession(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete chat %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", id)
			}
			return nil
		},
	}
}

func newSessionsExportCmd(a *app) *cobra.Command {
	var (
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export <chat-id>",
		Short: "Write a chat's history to a Markdown or JSON file",
		Long: `Export a chat and its full history to a file in --out.

Examples:
  playground sessions export 01HV3K8Z9Q2M7W6X5Y4T3R2P1N
  playground sessions export 01HV3K8Z9Q2M7W6X5Y4T3R2P1N --format json --out ./exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = outDir
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return err
			}

			client := a.client()
			id := args[0]
			sess, err := client.History(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("load history %s: %w", id, err)
			}
			// History carries no creation time; take it from the listing.
			if list, err := client.ListSessions(cmd.Context()); err == nil {
				for _, s := range list {
					if s.ID == id {
						sess.CreatedAt = s.CreatedAt
						if sess.Name == "" {
							sess.Name = s.Name
						}
						break
					}
				}
			} else {
				a.logger.Debug("export: list chats failed", "err", err)
			}

			path, err := export.ExportToFile(sess, exporter, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md or json")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

// =============================================================================
// OUTPUT
// =============================================================================

type sessionJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func writeSessionsJSON(w io.Writer, sessions []*model.Session) error {
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		entry := sessionJSON{ID: s.ID, Name: s.DisplayName()}
		if !s.CreatedAt.IsZero() {
			entry.CreatedAt = s.CreatedAt.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSessionsTable(w io.Writer, sessions []*model.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No chats yet.")
		return
	}
	fmt.Fprintln(w, runewidth.FillRight("ID", sessionIDWidth)+"  "+
		runewidth.FillRight("NAME", sessionNameWidth)+"  CREATED")
	for _, s := range sessions {
		created := "-"
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		name := runewidth.Truncate(s.DisplayName(), sessionNameWidth, "...")
		fmt.Fprintln(w, runewidth.FillRight(s.ID, sessionIDWidth)+"  "+
			runewidth.FillRight(name, sessionNameWidth)+"  "+created)
	}
}
