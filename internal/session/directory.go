// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the session directory.
package session

import (
	"sync"

	"github.com/midam/playground/internal/model"
)

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory holds the ordered session list (newest first) and the id of the
// open session. An empty active id is the landing state.
type Directory struct {
	mu       sync.RWMutex
	sessions []*model.Session
	activeID string
}

// NewDirectory creates an empty directory in the landing state.
func NewDirectory() *Directory {
	return &Directory{}
}

// Replace swaps in a freshly fetched list. Sessions that survive keep the
// messages already loaded for them; the active id is kept only if it is
// still listed or still held locally as unlisted-but-open.
func (d *Directory) Replace(list []*model.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := make(map[string]*model.Session, len(d.sessions))
	for _, s := range d.sessions {
		old[s.ID] = s
	}

	next := make([]*model.Session, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		if s == nil || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		if prev, ok := old[s.ID]; ok && prev.Loaded {
			prev.Name = s.Name
			if !s.CreatedAt.IsZero() {
				prev.CreatedAt = s.CreatedAt
			}
			next = append(next, prev)
			continue
		}
		next = append(next, s)
	}

	// The open session may not be listed yet (created moments ago).
	if d.activeID != "" && !seen[d.activeID] {
		if prev, ok := old[d.activeID]; ok {
			next = append([]*model.Session{prev}, next...)
		} else {
			d.activeID = ""
		}
	}

	d.sessions = next
}

// Add puts a session at the top of the list. A session with the same id is
// replaced.
func (d *Directory) Add(s *model.Session) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.indexLocked(s.ID); i >= 0 {
		d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
	}
	d.sessions = append([]*model.Session{s}, d.sessions...)
}

// Remove deletes exactly the session with id from the list. It reports
// whether that session was the open one, in which case the directory returns
// to the landing state.
func (d *Directory) Remove(id string) (wasActive bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	filtered := d.sessions[:0:0]
	for _, s := range d.sessions {
		if s.ID != id {
			filtered = append(filtered, s)
		}
	}
	d.sessions = filtered

	if d.activeID == id && id != "" {
		d.activeID = ""
		return true
	}
	return false
}

// Get returns the session with id, or nil.
func (d *Directory) Get(id string) *model.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := d.indexLocked(id); i >= 0 {
		return d.sessions[i]
	}
	return nil
}

// Active returns the open session, or nil in the landing state.
func (d *Directory) Active() *model.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.activeID == "" {
		return nil
	}
	if i := d.indexLocked(d.activeID); i >= 0 {
		return d.sessions[i]
	}
	return nil
}

// ActiveID returns the open session id ("" in the landing state).
func (d *Directory) ActiveID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.activeID
}

// SetActive opens the session with id. Returns false if it is not listed.
func (d *Directory) SetActive(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexLocked(id) < 0 {
		return false
	}
	d.activeID = id
	return true
}

// ClearActive returns to the landing state.
func (d *Directory) ClearActive() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeID = ""
}

// List returns a snapshot of the session list.
func (d *Directory) List() []*model.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*model.Session(nil), d.sessions...)
}

// IDs returns the listed session ids in order.
func (d *Directory) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, len(d.sessions))
	for i, s := range d.sessions {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of listed sessions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// IndexOf returns the position of id in the list, or -1.
func (d *Directory) IndexOf(id string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.indexLocked(id)
}

// At returns the session at position i, or nil when out of range.
func (d *Directory) At(i int) *model.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.sessions) {
		return nil
	}
	return d.sessions[i]
}

func (d *Directory) indexLocked(id string) int {
	for i, s := range d.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}
