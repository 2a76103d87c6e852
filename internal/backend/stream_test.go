// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns one preset chunk per Read call.
type chunkReader struct {
	chunks []string
	err    error // returned after the chunks run out (default io.EOF)
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func collect(t *testing.T, r io.Reader) ([]StreamChunk, error) {
	t.Helper()
	var got []StreamChunk
	err := NewStreamReader(r).Process(context.Background(), func(c StreamChunk) {
		got = append(got, c)
	})
	return got, err
}

func TestStreamReader_AccumulatesInOrder(t *testing.T) {
	chunks := []string{"The ", "quick ", "brown ", "fox"}

	got, err := collect(t, &chunkReader{chunks: append([]string(nil), chunks...)})
	require.NoError(t, err)
	require.Len(t, got, len(chunks)+1)

	var acc strings.Builder
	for i, c := range chunks {
		acc.WriteString(c)
		assert.Equal(t, i, got[i].Index)
		assert.Equal(t, c, got[i].Text)
		assert.Equal(t, acc.String(), got[i].Accumulated)
		assert.False(t, got[i].Done)
	}

	last := got[len(got)-1]
	assert.True(t, last.Done)
	assert.Empty(t, last.Text)
	assert.Equal(t, strings.Join(chunks, ""), last.Accumulated)
}

func TestStreamReader_SplitMultibyteHeals(t *testing.T) {
	const text = "héllo wörld ✓"

	got, err := collect(t, iotest.OneByteReader(strings.NewReader(text)))
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, text, got[len(got)-1].Accumulated)
}

func TestStreamReader_EmptyBody(t *testing.T) {
	got, err := collect(t, strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Done)
	assert.Empty(t, got[0].Accumulated)
}

func TestStreamReader_ReadErrorKeepsPartial(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{chunks: []string{"partial ", "answer"}, err: boom}

	got, err := collect(t, r)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrTypeStream, ErrorTypeOf(err))

	require.Len(t, got, 2)
	assert.Equal(t, "partial answer", got[1].Accumulated)
	for _, c := range got {
		assert.False(t, c.Done, "no Done chunk after a failed read")
	}
}

func TestStreamReader_NilBody(t *testing.T) {
	err := NewStreamReader(nil).Process(context.Background(), func(StreamChunk) {
		t.Fatal("callback must not run without a body")
	})
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestStreamReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := NewStreamReader(strings.NewReader("data")).Process(ctx, func(StreamChunk) { calls++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestStreamReader_Counters(t *testing.T) {
	sr := NewStreamReader(&chunkReader{chunks: []string{"a", "b", "c"}})
	require.NoError(t, sr.Process(context.Background(), func(StreamChunk) {}))
	assert.Equal(t, 3, sr.Chunks())
	assert.Equal(t, "abc", sr.Content())
}
