// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/midam/playground/internal/backend"
)

type mockOptions struct {
	url    string
	chatID string
	image  string
}

func newMockCmd(a *app) *cobra.Command {
	opts := &mockOptions{}

	cmd := &cobra.Command{
		Use:   "mock <text>",
		Short: "Call the mock inference endpoint and print the JSON response",
		Long: `Call POST /api/chat on a running "playground serve" and print the
JSON response.

Examples:
  playground mock "hello"
  playground mock --model gpt-4 --image photo.png "what is this?"
  playground mock --url http://localhost:3001 "hello"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := opts.url
			if url == "" {
				url = fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)
			}
			client := backend.NewClientWithConfig(&backend.ClientConfig{
				BaseURL:      url,
				UserID:       a.cfg.Backend.UserID,
				Timeout:      a.cfg.BackendTimeout() + a.cfg.MockDelay(),
				DefaultModel: a.cfg.Models.Default,
			})

			resp, err := client.Infer(cmd.Context(), backend.InferenceRequest{
				ChatID: opts.chatID,
				Text:   strings.Join(args, " "),
				Model:  a.cfg.Models.Default,
				Image:  opts.image,
			})
			if err != nil {
				return fmt.Errorf("mock inference: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "mock server base URL (default http://localhost:<server.port>)")
	cmd.Flags().StringVar(&opts.chatID, "chat", "", "chat id to echo back")
	cmd.Flags().StringVar(&opts.image, "image", "", "mark the request as carrying an image")
	return cmd
}
