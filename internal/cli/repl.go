// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/midam/playground/internal/backend"
	"github.com/midam/playground/internal/config"
	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/ui/styles"
	"github.com/midam/playground/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Prompt style
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// Welcome banner style
	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Indigo).
			Bold(true)

	// Dim helper text
	dimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

const replHelp = `Commands:
  /new             start a new chat
  /model [id]      show or switch the model
  /models          list models
  /chat            show the current chat id
  /help            show this help
  /quit            exit (also ctrl+d)`

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Line-mode chat with input history",
		Long: `Chat line by line. The first message creates a chat; replies stream in as
plain text. Arrow keys recall earlier input.

` + replHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(configDir, "repl_history")}

	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// ReadInput reads a line, adding non-empty input to the history.
func (r *lineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history (owner-only permissions) and restores the terminal.
func (r *lineReader) Close() {
	err := util.AtomicWriteFrom(r.historyFile, 0600, 0700, func(w io.Writer) error {
		_, err := r.line.WriteHistory(w)
		return err
	})
	if err != nil {
		slog.Debug("repl history not saved", "err", err)
	}
	r.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// replBackend is the part of the backend client the REPL uses.
type replBackend interface {
	CreateSession(ctx context.Context) (*model.Session, error)
	SendMessage(ctx context.Context, chatID, text, modelID string, callback backend.StreamCallback) error
}

// replSession is the state of one REPL run.
type replSession struct {
	backend replBackend
	catalog *model.Catalog
	modelID string
	chatID  string
	out     io.Writer
}

// handle runs one line of input. It reports whether the REPL should exit.
func (r *replSession) handle(ctx context.Context, input string) (quit bool, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false, nil
	}

	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true, nil
	}
	if strings.HasPrefix(input, "/") {
		return r.command(input)
	}
	return false, r.send(ctx, input)
}

func (r *replSession) command(input string) (quit bool, err error) {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/q", "/exit":
		return true, nil
	case "/help", "/h":
		fmt.Fprintln(r.out, replHelp)
	case "/new", "/n":
		r.chatID = ""
		fmt.Fprintln(r.out, dimStyle.Render("New chat; the next message creates it."))
	case "/chat":
		if r.chatID == "" {
			fmt.Fprintln(r.out, dimStyle.Render("No chat yet."))
		} else {
			fmt.Fprintln(r.out, r.chatID)
		}
	case "/models":
		for _, opt := range r.catalog.Options() {
			marker := "  "
			if opt.ID == r.modelID {
				marker = "* "
			}
			fmt.Fprintf(r.out, "%s%-20s %s\n", marker, opt.ID, opt.Name)
		}
	case "/model", "/m":
		if len(fields) < 2 {
			fmt.Fprintf(r.out, "%s (%s)\n", r.catalog.DisplayName(r.modelID), r.modelID)
			return false, nil
		}
		opt, ok := r.catalog.Lookup(fields[1])
		if !ok {
			return false, fmt.Errorf("unknown model %q (see /models)", fields[1])
		}
		r.modelID = opt.ID
		fmt.Fprintln(r.out, dimStyle.Render("Model: "+opt.Name))
	default:
		return false, fmt.Errorf("unknown command %s (see /help)", fields[0])
	}
	return false, nil
}

// send creates the chat on first use and streams the reply to out.
func (r *replSession) send(ctx context.Context, text string) error {
	if r.chatID == "" {
		sess, err := r.backend.CreateSession(ctx)
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		r.chatID = sess.ID
	}

	var reply string
	err := r.backend.SendMessage(ctx, r.chatID, text, r.modelID, func(chunk backend.StreamChunk) {
		reply = chunk.Accumulated
		fmt.Fprint(r.out, chunk.Text)
	})
	if reply != "" && !strings.HasSuffix(reply, "\n") {
		fmt.Fprintln(r.out)
	}
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// =============================================================================
// LOOP
// =============================================================================

func runRepl(ctx context.Context, a *app, out io.Writer) error {
	catalog := a.cfg.Catalog()
	modelID := a.cfg.Models.Default
	if _, ok := catalog.Lookup(modelID); !ok {
		modelID = catalog.Default().ID
	}

	session := &replSession{
		backend: a.client(),
		catalog: catalog,
		modelID: modelID,
		out:     out,
	}

	reader := newLineReader()
	defer reader.Close()

	fmt.Fprintln(out, welcomeStyle.Render("Midam's Playground")+" "+
		dimStyle.Render("model "+catalog.DisplayName(modelID)+" - /help for commands"))

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := reader.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// ctrl+c, ctrl+d or a closed stdin all end the session.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				a.logger.Warn("repl input failed", "err", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		quit, err := session.handle(ctx, input)
		if err != nil {
			a.logger.Error("repl command failed", "err", err)
			fmt.Fprintln(out, errorStyle.Render("[Error] ")+err.Error())
		}
		if quit {
			return nil
		}
	}
}
