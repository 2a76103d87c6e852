// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-runewidth"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/midam/playground/internal/backend"
	"github.com/midam/playground/internal/model"
)

const (
	// RestoredChatName is returned for history of an unknown chat.
	RestoredChatName = "Restored Chat"

	// TitleWidth is the maximum display width of a generated chat title.
	TitleWidth = 32

	senderUser = "user"
	senderBot  = "bot"
)

// ErrChatNotFound is returned by Store operations on an unknown chat.
var ErrChatNotFound = errors.New("chat not found")

// =============================================================================
// STORE
// =============================================================================

type chatRecord struct {
	id        string
	userID    string
	name      string
	createdAt time.Time
	messages  []backend.HistoryMessage
	titled    bool
}

// Store is the in-memory chat store behind the dev backend. State lives for
// the process lifetime only.
type Store struct {
	mu    sync.Mutex
	chats map[string]*chatRecord
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		chats: make(map[string]*chatRecord),
		now:   time.Now,
	}
}

// CreateChat adds an untitled chat for userID and returns its id.
func (s *Store) CreateChat(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ulid.Make().String()
	s.chats[id] = &chatRecord{
		id:        id,
		userID:    userID,
		name:      model.DefaultSessionName,
		createdAt: s.now().UTC(),
	}
	return id
}

// Exists reports whether the chat is known.
func (s *Store) Exists(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chats[chatID]
	return ok
}

// AppendMessage records a message. It reports whether this completed the
// first exchange (first bot message after a user message).
func (s *Store) AppendMessage(chatID, sender, text string) (firstExchange bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return false, ErrChatNotFound
	}
	c.messages = append(c.messages, backend.HistoryMessage{
		Sender:    sender,
		Message:   text,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
	return sender == senderBot && !c.titled && len(c.messages) == 2, nil
}

// SetTitle renames a chat once. Later calls are ignored.
func (s *Store) SetTitle(chatID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return ErrChatNotFound
	}
	if c.titled {
		return nil
	}
	c.name = title
	c.titled = true
	return nil
}

// History returns the chat name and a copy of its messages.
func (s *Store) History(chatID string) (backend.HistoryResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return backend.HistoryResponse{ChatName: RestoredChatName, Messages: []backend.HistoryMessage{}}, false
	}
	msgs := make([]backend.HistoryMessage, len(c.messages))
	copy(msgs, c.messages)
	return backend.HistoryResponse{ChatName: c.name, Messages: msgs}, true
}

// ListByUser returns the user's chats, newest first.
func (s *Store) ListByUser(userID string) []backend.ChatSummary {
	s.mu.Lock()
	records := make([]*chatRecord, 0, len(s.chats))
	for _, c := range s.chats {
		if c.userID == userID {
			records = append(records, c)
		}
	}
	s.mu.Unlock()

	// ULIDs sort by creation time, which breaks ties on equal timestamps.
	sort.Slice(records, func(i, j int) bool {
		if !records[i].createdAt.Equal(records[j].createdAt) {
			return records[i].createdAt.After(records[j].createdAt)
		}
		return records[i].id > records[j].id
	})

	out := make([]backend.ChatSummary, len(records))
	for i, c := range records {
		out[i] = backend.ChatSummary{
			ID:        c.id,
			Name:      c.name,
			CreatedAt: c.createdAt.Format(time.RFC3339Nano),
		}
	}
	return out
}

// Delete removes a chat. Deleting an unknown chat is not an error.
func (s *Store) Delete(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
}

// Len returns the number of chats across all users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// TitleFrom derives a chat title from the first user message: NFC
// normalised, whitespace collapsed, at most TitleWidth cells wide.
func TitleFrom(text string) string {
	t := strings.Join(strings.Fields(norm.NFC.String(text)), " ")
	if t == "" {
		return model.DefaultSessionName
	}
	return runewidth.Truncate(t, TitleWidth, "...")
}

// SplitChunks splits a reply into word-sized chunks that concatenate back to
// the original.
func SplitChunks(reply string) []string {
	if reply == "" {
		return nil
	}
	return strings.SplitAfter(reply, " ")
}

// =============================================================================
// HANDLERS
// =============================================================================

type devHandler struct {
	store  *Store
	rate   float64
	logger *slog.Logger
}

// newChat serves POST /new_chat.
func (h *devHandler) newChat(c *gin.Context) {
	var req backend.NewChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		c.JSON(http.StatusOK, backend.NewChatResponse{Error: "Missing user_id"})
		return
	}
	id := h.store.CreateChat(req.UserID)
	h.logger.Info("chat created", "chat_id", id, "user_id", req.UserID)
	c.JSON(http.StatusOK, backend.NewChatResponse{ChatID: id})
}

// chat serves POST /chat. The reply is streamed as text/plain in word
// chunks. Whatever was sent is recorded, even if the client disconnects.
func (h *devHandler) chat(c *gin.Context) {
	var req backend.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, backend.ErrorResponse{Error: "Missing input or chat_id"})
		return
	}
	if _, err := h.store.AppendMessage(req.ChatID, senderUser, req.Text); err != nil {
		c.JSON(http.StatusNotFound, backend.ErrorResponse{Error: "Chat not found"})
		return
	}

	ctx := c.Request.Context()
	reply := FormatMockResponse(req.Model, req.Text, false)

	var limiter *rate.Limiter
	if h.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.rate), 1)
	}

	var sent strings.Builder
	chunks := 0
	defer func() {
		first, err := h.store.AppendMessage(req.ChatID, senderBot, sent.String())
		if err != nil {
			// Deleted mid-stream.
			h.logger.Debug("reply dropped", "chat_id", req.ChatID)
			return
		}
		if first {
			_ = h.store.SetTitle(req.ChatID, TitleFrom(req.Text))
		}
		h.logger.Info("reply streamed", "chat_id", req.ChatID, "model", req.Model, "chunks", chunks)
	}()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)

	for _, chunk := range SplitChunks(reply) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return
		}
		c.Writer.Flush()
		sent.WriteString(chunk)
		chunks++
	}
}

// history serves GET /chat_history/:chat_id.
func (h *devHandler) history(c *gin.Context) {
	resp, _ := h.store.History(c.Param("chat_id"))
	c.JSON(http.StatusOK, resp)
}

// userChats serves GET /user_chats/:user_id.
func (h *devHandler) userChats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListByUser(c.Param("user_id")))
}

// deleteChat serves DELETE /delete_chat/:chat_id.
func (h *devHandler) deleteChat(c *gin.Context) {
	id := c.Param("chat_id")
	h.store.Delete(id)
	h.logger.Info("chat deleted", "chat_id", id)
	c.JSON(http.StatusOK, backend.DeleteResponse{Status: "deleted"})
}
