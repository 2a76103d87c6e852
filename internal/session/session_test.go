// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midam/playground/internal/model"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	mu       sync.Mutex
	sessions []*model.Session
	history  map[string][]*model.Message
	nextID   int

	historyCalls int

	// When set, History signals historyStarted and waits on historyGate.
	historyStarted chan struct{}
	historyGate    chan struct{}

	failList     error
	failCreate   error
	failDelete   error
	failHistory  error
}

func newFakeBackend(ids ...string) *fakeBackend {
	fb := &fakeBackend{history: make(map[string][]*model.Message)}
	for _, id := range ids {
		fb.sessions = append(fb.sessions, model.NewSession(id, "chat "+id, time.Now()))
	}
	return fb
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]*model.Session, len(f.sessions))
	for i, s := range f.sessions {
		out[i] = model.NewSession(s.ID, s.Name, s.CreatedAt)
	}
	return out, nil
}

func (f *fakeBackend) CreateSession(ctx context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.nextID++
	s := model.NewSession(fmt.Sprintf("new-%d", f.nextID), model.DefaultSessionName, time.Now())
	f.sessions = append([]*model.Session{s}, f.sessions...)
	return model.NewSession(s.ID, s.Name, s.CreatedAt), nil
}

func (f *fakeBackend) History(ctx context.Context, id string) (*model.Session, error) {
	if f.historyGate != nil {
		close(f.historyStarted)
		<-f.historyGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.failHistory != nil {
		return nil, f.failHistory
	}
	s := model.NewSession(id, "", time.Time{})
	s.SetMessages(f.history[id])
	return s, nil
}

func (f *fakeBackend) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

func newLoader(t *testing.T, fb *fakeBackend) *Loader {
	t.Helper()
	l := NewLoader(fb, NewDirectory(), nil)
	require.NoError(t, l.Refresh(context.Background()))
	return l
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestDirectory_RemoveExactlyOne(t *testing.T) {
	tests := []struct {
		name   string
		remove string
		want   []string
	}{
		{"first", "a", []string{"b", "c", "d"}},
		{"middle", "c", []string{"a", "b", "d"}},
		{"last", "d", []string{"a", "b", "c"}},
		{"missing", "zzz", []string{"a", "b", "c", "d"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDirectory()
			for _, id := range []string{"d", "c", "b", "a"} {
				d.Add(model.NewSession(id, "", time.Time{}))
			}

			d.Remove(tc.remove)

			if diff := cmp.Diff(tc.want, d.IDs()); diff != "" {
				t.Errorf("IDs after Remove(%q) mismatch (-want +got):\n%s", tc.remove, diff)
			}
		})
	}
}

func TestDirectory_RemoveActiveReturnsToLanding(t *testing.T) {
	d := NewDirectory()
	d.Add(model.NewSession("a", "", time.Time{}))
	d.Add(model.NewSession("b", "", time.Time{}))
	require.True(t, d.SetActive("a"))

	assert.False(t, d.Remove("b"), "removing another session is not active")
	assert.Equal(t, "a", d.ActiveID())

	assert.True(t, d.Remove("a"))
	assert.Empty(t, d.ActiveID())
	assert.Nil(t, d.Active())
}

func TestDirectory_AddDeduplicates(t *testing.T) {
	d := NewDirectory()
	d.Add(model.NewSession("a", "old", time.Time{}))
	d.Add(model.NewSession("b", "", time.Time{}))
	d.Add(model.NewSession("a", "new", time.Time{}))
	d.Add(nil)

	assert.Equal(t, []string{"a", "b"}, d.IDs())
	assert.Equal(t, "new", d.Get("a").Name)
}

func TestDirectory_ReplaceKeepsLoadedMessages(t *testing.T) {
	d := NewDirectory()
	s := model.NewSession("a", "Untitled Chat", time.Time{})
	s.SetMessages([]*model.Message{model.NewUserMessage("hi")})
	d.Add(s)

	d.Replace([]*model.Session{
		model.NewSession("b", "other", time.Now()),
		model.NewSession("a", "Greeting", time.Now()),
	})

	assert.Equal(t, []string{"b", "a"}, d.IDs())
	got := d.Get("a")
	assert.Same(t, s, got)
	assert.Equal(t, "Greeting", got.Name, "name follows the backend")
	assert.Equal(t, 1, got.Len())
}

func TestDirectory_ReplaceKeepsUnlistedActive(t *testing.T) {
	d := NewDirectory()
	d.Add(model.NewSession("fresh", "", time.Time{}))
	d.SetActive("fresh")

	d.Replace([]*model.Session{model.NewSession("x", "", time.Time{})})

	assert.Equal(t, []string{"fresh", "x"}, d.IDs())
	assert.Equal(t, "fresh", d.ActiveID())
}

func TestDirectory_SetActiveUnknown(t *testing.T) {
	d := NewDirectory()
	assert.False(t, d.SetActive("nope"))
	assert.Nil(t, d.Active())
	assert.Nil(t, d.At(0))
	assert.Equal(t, -1, d.IndexOf("nope"))
}

func TestDirectory_ConcurrentAccess(t *testing.T) {
	d := NewDirectory()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		id := fmt.Sprintf("s%d", i)
		go func() {
			defer wg.Done()
			d.Add(model.NewSession(id, "", time.Time{}))
		}()
		go func() {
			defer wg.Done()
			_ = d.List()
			_ = d.Active()
		}()
		go func() {
			defer wg.Done()
			d.Remove(id)
		}()
	}
	wg.Wait()
}

// =============================================================================
// LOADER TESTS
// =============================================================================

func TestLoader_Refresh(t *testing.T) {
	l := newLoader(t, newFakeBackend("c", "b", "a"))
	assert.Equal(t, []string{"c", "b", "a"}, l.Directory().IDs())
}

func TestLoader_RefreshFailureKeepsList(t *testing.T) {
	fb := newFakeBackend("a")
	l := newLoader(t, fb)
	fb.failList = errors.New("down")

	require.Error(t, l.Refresh(context.Background()))
	assert.Equal(t, []string{"a"}, l.Directory().IDs())
}

func TestLoader_CreateOpensAtTop(t *testing.T) {
	l := newLoader(t, newFakeBackend("a"))

	sess, err := l.Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{sess.ID, "a"}, l.Directory().IDs())
	assert.Equal(t, sess.ID, l.Directory().ActiveID())
	assert.True(t, sess.Loaded)
	assert.True(t, sess.IsEmpty())
}

func TestLoader_CreateFailure(t *testing.T) {
	fb := newFakeBackend("a")
	l := newLoader(t, fb)
	fb.failCreate = errors.New("nope")

	_, err := l.Create(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, l.Directory().IDs())
	assert.Empty(t, l.Directory().ActiveID())
}

func TestLoader_DeleteRemovesExactlyThatID(t *testing.T) {
	l := newLoader(t, newFakeBackend("a", "b", "c"))
	before := l.Directory().IDs()

	wasActive, err := l.Delete(context.Background(), "b")
	require.NoError(t, err)
	assert.False(t, wasActive)

	want := []string{}
	for _, id := range before {
		if id != "b" {
			want = append(want, id)
		}
	}
	if diff := cmp.Diff(want, l.Directory().IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_DeleteOpenSession(t *testing.T) {
	l := newLoader(t, newFakeBackend("a", "b"))
	_, err := l.Open(context.Background(), "a")
	require.NoError(t, err)

	wasActive, err := l.Delete(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, wasActive)
	assert.Nil(t, l.Directory().Active())
}

func TestLoader_DeleteFailureKeepsSession(t *testing.T) {
	fb := newFakeBackend("a", "b")
	l := newLoader(t, fb)
	fb.failDelete = errors.New("locked")

	_, err := l.Delete(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, l.Directory().IDs())
}

func TestLoader_OpenLoadsOnce(t *testing.T) {
	fb := newFakeBackend("a")
	fb.history["a"] = []*model.Message{
		model.NewUserMessage("q"),
		model.NewMessage(model.RoleAssistant, "a"),
	}
	l := newLoader(t, fb)

	sess, err := l.Open(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Len())
	assert.Equal(t, "chat a", sess.Name, "empty history name keeps listed name")

	_, err = l.Open(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.historyCalls)
}

func TestLoader_OpenEmptySession(t *testing.T) {
	l := newLoader(t, newFakeBackend("empty"))

	sess, err := l.Open(context.Background(), "empty")
	require.NoError(t, err)
	assert.True(t, sess.Loaded)
	assert.True(t, sess.IsEmpty())
	assert.Equal(t, "empty", l.Directory().ActiveID())
}

func TestLoader_OpenFailure(t *testing.T) {
	fb := newFakeBackend("a")
	l := newLoader(t, fb)
	fb.failHistory = errors.New("boom")

	_, err := l.Open(context.Background(), "a")
	require.Error(t, err)
	assert.Empty(t, l.Directory().ActiveID())
}

func TestLoader_OpenSurvivesRefreshDuringHistory(t *testing.T) {
	fb := newFakeBackend("a", "b")
	fb.history["a"] = []*model.Message{
		model.NewUserMessage("q"),
		model.NewMessage(model.RoleAssistant, "r"),
	}
	l := newLoader(t, fb)
	fb.historyStarted = make(chan struct{})
	fb.historyGate = make(chan struct{})

	type result struct {
		sess *model.Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sess, err := l.Open(context.Background(), "a")
		done <- result{sess, err}
	}()

	<-fb.historyStarted
	// The refresh swaps the unloaded entry for "a" while history is in flight.
	require.NoError(t, l.Refresh(context.Background()))
	close(fb.historyGate)

	res := <-done
	require.NoError(t, res.err)

	active := l.Directory().Active()
	require.NotNil(t, active)
	assert.Equal(t, "a", active.ID)
	assert.True(t, active.Loaded)
	assert.Equal(t, 2, active.Len())
	assert.Same(t, active, res.sess)
}

func TestLoader_ApplyOpenUsesCurrentEntry(t *testing.T) {
	fb := newFakeBackend("a")
	l := newLoader(t, fb)
	before := l.Directory().Get("a")

	hist := model.NewSession("a", "named", time.Time{})
	hist.SetMessages([]*model.Message{model.NewUserMessage("q")})

	require.NoError(t, l.Refresh(context.Background()))
	after := l.Directory().Get("a")
	require.NotSame(t, before, after)

	sess := l.ApplyOpen("a", hist)
	assert.Same(t, after, sess)
	assert.Equal(t, "named", sess.Name)
	assert.Equal(t, 1, sess.Len())
	assert.False(t, l.NeedsHistory("a"))
}
