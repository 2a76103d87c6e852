// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the external chat backend.
package backend

import (
	"context"
	"errors"
	"io"
	"strings"
)

const streamReadSize = 4096

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader consumes a chunked text body.
//
// Every read that returns data is one chunk: it is decoded as text and
// appended to the accumulator, and the callback receives both the chunk and
// the accumulated text. There is no re-chunking. A multi-byte sequence split
// across two reads shows up garbled in Text but is whole again in
// Accumulated once the next chunk arrives.
type StreamReader struct {
	r   io.Reader
	buf []byte

	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunks      int
}

// NewStreamReader creates a stream reader over r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		r:   r,
		buf: make([]byte, streamReadSize),
	}
}

// Process reads the stream and calls callback for each chunk, in order.
// A final callback with Done set is made when the stream ends cleanly.
// Blocks until the stream is complete, a read fails, or ctx is cancelled.
// Text delivered before a failure is not retracted.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	if s.r == nil {
		return ErrNoBody
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.r.Read(s.buf)
		if n > 0 {
			text := string(s.buf[:n])
			s.accumulator.WriteString(text)
			callback(StreamChunk{
				Index:       s.chunks,
				Text:        text,
				Accumulated: s.accumulator.String(),
			})
			s.chunks++
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				callback(StreamChunk{
					Index:       s.chunks,
					Accumulated: s.accumulator.String(),
					Done:        true,
				})
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &ClientError{Type: ErrTypeStream, Message: "stream read failed", Cause: err}
		}
	}
}

// Content returns everything accumulated so far.
func (s *StreamReader) Content() string {
	return s.accumulator.String()
}

// Chunks returns the number of non-empty chunks read so far.
func (s *StreamReader) Chunks() int {
	return s.chunks
}
