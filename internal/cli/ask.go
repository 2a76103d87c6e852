// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/midam/playground/internal/backend"
	"github.com/midam/playground/internal/ui/components"
	"github.com/midam/playground/internal/ui/styles"
)

type askOptions struct {
	chatID string
	raw    bool
}

func newAskCmd(a *app) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Long: `Send one message and print the reply.

A new chat is created unless --chat names an existing one. On a terminal the
reply is rendered as markdown once complete; when piped, it is streamed as
plain text as it arrives.

Examples:
  playground ask "Explain goroutines in one paragraph"
  playground ask --model gpt-4 "Write a haiku about Go"
  playground ask --chat 01HV3K8Z9Q2M7W6X5Y4T3R2P1N "And in French?"
  playground ask "List three colors" | tee reply.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("message is empty")
			}
			return runAsk(cmd.Context(), a, opts, text, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.chatID, "chat", "", "send into an existing chat")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "never render markdown")
	return cmd
}

func runAsk(ctx context.Context, a *app, opts *askOptions, text string, out, errOut io.Writer) error {
	client := a.client()

	chatID := opts.chatID
	if chatID == "" {
		sess, err := client.CreateSession(ctx)
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		chatID = sess.ID
	}

	render := !opts.raw && isTerminal(out)
	modelID := a.cfg.Models.Default

	var reply string
	err := client.SendMessage(ctx, chatID, text, modelID, func(chunk backend.StreamChunk) {
		reply = chunk.Accumulated
		if !render {
			fmt.Fprint(out, chunk.Text)
		}
	})
	if err != nil {
		if !render && reply != "" {
			fmt.Fprintln(out)
		}
		return fmt.Errorf("send message: %w", err)
	}

	if render {
		fmt.Fprint(out, renderMarkdown(a, reply, terminalWidth(out)))
	} else if !strings.HasSuffix(reply, "\n") {
		fmt.Fprintln(out)
	}

	if isTerminal(errOut) {
		fmt.Fprintln(errOut, styles.RenderInfo("chat "+chatID))
	}
	return nil
}

// renderMarkdown renders a reply with glamour for terminal display.
func renderMarkdown(a *app, content string, width int) string {
	md := components.NewMarkdownRenderer(styles.GlamourStyle(a.cfg.UI.Theme))
	md.SetWidth(width - 2)
	return md.Render(content)
}
