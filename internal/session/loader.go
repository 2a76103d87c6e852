// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/midam/playground/internal/model"
)

// Backend is the part of the chat backend the directory needs.
// *backend.Client satisfies it.
type Backend interface {
	ListSessions(ctx context.Context) ([]*model.Session, error)
	CreateSession(ctx context.Context) (*model.Session, error)
	History(ctx context.Context, chatID string) (*model.Session, error)
	DeleteSession(ctx context.Context, chatID string) error
}

// Loader runs directory operations against the backend.
// There is no retry and no optimistic update: the directory changes only
// after the backend has answered successfully.
type Loader struct {
	backend Backend
	dir     *Directory
	logger  *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default().
func NewLoader(b Backend, dir *Directory, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{backend: b, dir: dir, logger: logger}
}

// Directory returns the directory the loader applies results to.
func (l *Loader) Directory() *Directory {
	return l.dir
}

// =============================================================================
// NETWORK HALVES
// =============================================================================

// The Fetch and Request methods only talk to the backend; they never touch
// the directory. The TUI runs them inside commands and applies the results
// on its Update goroutine with the Apply methods below.

// FetchList fetches the session list for the user.
func (l *Loader) FetchList(ctx context.Context) ([]*model.Session, error) {
	list, err := l.backend.ListSessions(ctx)
	if err != nil {
		l.logger.Error("list sessions failed", "err", err)
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// RequestCreate asks the backend for a new session.
func (l *Loader) RequestCreate(ctx context.Context) (*model.Session, error) {
	sess, err := l.backend.CreateSession(ctx)
	if err != nil {
		l.logger.Error("create session failed", "err", err)
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// RequestDelete deletes a session on the backend.
func (l *Loader) RequestDelete(ctx context.Context, id string) error {
	if err := l.backend.DeleteSession(ctx, id); err != nil {
		l.logger.Error("delete session failed", "chat_id", id, "err", err)
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// FetchHistory loads the history of a session.
func (l *Loader) FetchHistory(ctx context.Context, id string) (*model.Session, error) {
	hist, err := l.backend.History(ctx, id)
	if err != nil {
		l.logger.Error("load history failed", "chat_id", id, "err", err)
		return nil, fmt.Errorf("load history: %w", err)
	}
	return hist, nil
}

// NeedsHistory reports whether opening id requires a history fetch.
func (l *Loader) NeedsHistory(id string) bool {
	sess := l.dir.Get(id)
	return sess == nil || !sess.Loaded
}

// =============================================================================
// DIRECTORY HALVES
// =============================================================================

// ApplyList replaces the directory list with a fetched one.
func (l *Loader) ApplyList(list []*model.Session) {
	l.dir.Replace(list)
	l.logger.Debug("sessions refreshed", "count", len(list))
}

// ApplyCreate adds a created session to the top of the list and opens it.
func (l *Loader) ApplyCreate(sess *model.Session) {
	// A brand-new chat has no history to fetch.
	sess.Loaded = true
	l.dir.Add(sess)
	l.dir.SetActive(sess.ID)
	l.logger.Info("session created", "chat_id", sess.ID)
}

// ApplyDelete removes a deleted session locally. It reports whether it was
// open (the directory is then in the landing state).
func (l *Loader) ApplyDelete(id string) (wasActive bool) {
	wasActive = l.dir.Remove(id)
	l.logger.Info("session deleted", "chat_id", id, "was_active", wasActive)
	return wasActive
}

// ApplyOpen makes id the active session. A non-nil hist is copied into the
// session the directory holds now, which may not be the object that existed
// when the fetch started: a refresh in between swaps unloaded entries.
func (l *Loader) ApplyOpen(id string, hist *model.Session) *model.Session {
	sess := l.dir.Get(id)
	if sess == nil {
		sess = model.NewSession(id, "", time.Time{})
		l.dir.Add(sess)
	}
	if hist != nil && !sess.Loaded {
		ApplyHistory(sess, hist)
	}
	l.dir.SetActive(id)
	return sess
}

// =============================================================================
// COMBINED
// =============================================================================

// Refresh fetches the session list and applies it.
func (l *Loader) Refresh(ctx context.Context) error {
	list, err := l.FetchList(ctx)
	if err != nil {
		return err
	}
	l.ApplyList(list)
	return nil
}

// Create requests a new session, adds it to the top of the list and opens it.
func (l *Loader) Create(ctx context.Context) (*model.Session, error) {
	sess, err := l.RequestCreate(ctx)
	if err != nil {
		return nil, err
	}
	l.ApplyCreate(sess)
	return sess, nil
}

// Delete removes a session on the backend, then locally. It reports whether
// the deleted session was open.
func (l *Loader) Delete(ctx context.Context, id string) (wasActive bool, err error) {
	if err := l.RequestDelete(ctx, id); err != nil {
		return false, err
	}
	return l.ApplyDelete(id), nil
}

// Open makes id the active session, loading its history on first open.
func (l *Loader) Open(ctx context.Context, id string) (*model.Session, error) {
	var hist *model.Session
	if l.NeedsHistory(id) {
		var err error
		if hist, err = l.FetchHistory(ctx, id); err != nil {
			return nil, err
		}
	}
	return l.ApplyOpen(id, hist), nil
}

// ApplyHistory copies loaded history into sess. The backend name wins when
// present.
func ApplyHistory(sess, hist *model.Session) {
	if hist == nil {
		sess.SetMessages(nil)
		return
	}
	if hist.Name != "" {
		sess.Name = hist.Name
	}
	sess.SetMessages(hist.Messages)
}
