// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/midam/playground/internal/backend"
)

// =============================================================================
// STREAM PLUMBING
// =============================================================================

// streamFrameInterval caps transcript re-renders while streaming (~30fps).
const streamFrameInterval = 33 * time.Millisecond

// streamBuffer is the number of chunk messages that may queue before the
// sending goroutine blocks on the Update loop.
const streamBuffer = 64

// streamState tracks the reply in flight.
type streamState struct {
	sessionID string
	messageID string
	cancel    context.CancelFunc
}

// startStream sends text and returns a command yielding the first stream
// message. The send runs on its own goroutine; chunks are queued on a channel
// and every chunk message carries the channel so Update can re-arm the read.
func startStream(ctx context.Context, b Backend, sessionID, messageID, text, modelID string) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan tea.Msg, streamBuffer)

		go func() {
			defer close(ch)

			err := b.SendMessage(ctx, sessionID, text, modelID, func(chunk backend.StreamChunk) {
				msg := StreamChunkMsg{
					SessionID: sessionID,
					MessageID: messageID,
					Chunk:     chunk,
					stream:    ch,
				}
				select {
				case ch <- msg:
				case <-ctx.Done():
				}
			})

			// Always delivered, even after cancellation, so the composer
			// is released.
			ch <- StreamDoneMsg{SessionID: sessionID, MessageID: messageID, Err: err}
		}()

		return <-ch
	}
}

// waitForStream reads the next message of a stream.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// streamTickCmd schedules the next throttled re-render.
func streamTickCmd() tea.Cmd {
	return tea.Tick(streamFrameInterval, func(time.Time) tea.Msg {
		return StreamTickMsg{}
	})
}
