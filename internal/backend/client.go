// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the external chat backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/midam/playground/internal/model"
	"github.com/midam/playground/internal/telemetry"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for logging.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeInvalidResponse
	ErrTypeNoBody
	ErrTypeBackend
	ErrTypeStream
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeUnreachable:
		return "unreachable"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeNoBody:
		return "no_body"
	case ErrTypeBackend:
		return "backend"
	case ErrTypeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "chat backend is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound    = &ClientError{Type: ErrTypeNotFound, Message: "chat not found"}
	ErrNoBody      = &ClientError{Type: ErrTypeNoBody, Message: "response has no body"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultUserID  = "FrontendUser"
)

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://localhost:8000)
	BaseURL string

	// UserID is the fixed user identity sessions are listed for
	UserID string

	// Timeout for non-streaming requests (default: 30s).
	// Streaming sends are bounded only by their context.
	Timeout time.Duration

	// DefaultModel is sent when a caller passes no model
	DefaultModel string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      DefaultBaseURL,
		UserID:       DefaultUserID,
		Timeout:      30 * time.Second,
		DefaultModel: model.DefaultModelID,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := backend.NewClient()
//	sessions, err := client.ListSessions(ctx)
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.UserID == "" {
		config.UserID = DefaultUserID
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = model.DefaultModelID
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		// No client timeout for streaming; the caller's context bounds it.
		streamClient: &http.Client{},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// UserID returns the user sessions are scoped to.
func (c *Client) UserID() string {
	return c.config.UserID
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession asks the backend for a new chat and returns it.
// The backend only returns an id; name and creation time are filled locally
// until the next list refresh.
func (c *Client) CreateSession(ctx context.Context) (sess *model.Session, err error) {
	ctx, done := telemetry.StartOp(ctx, "create_session")
	defer func() { done(err) }()

	var resp NewChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/new_chat", NewChatRequest{UserID: c.config.UserID}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &ClientError{Type: ErrTypeBackend, Message: resp.Error}
	}
	if resp.ChatID == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "new_chat returned no chat_id"}
	}

	return model.NewSession(resp.ChatID, model.DefaultSessionName, time.Now()), nil
}

// ListSessions returns the user's sessions, newest first as the backend
// orders them.
func (c *Client) ListSessions(ctx context.Context) (sessions []*model.Session, err error) {
	ctx, done := telemetry.StartOp(ctx, "list_sessions")
	defer func() { done(err) }()

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/user_chats/"+url.PathEscape(c.config.UserID), nil, &raw); err != nil {
		return nil, err
	}

	// The backend answers {error} instead of a list on failure.
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var errResp ErrorResponse
		if err := json.Unmarshal(trimmed, &errResp); err == nil && errResp.Error != "" {
			return nil, &ClientError{Type: ErrTypeBackend, Message: errResp.Error}
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "user_chats returned an object"}
	}

	var summaries []ChatSummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	sessions = make([]*model.Session, 0, len(summaries))
	for _, s := range summaries {
		sessions = append(sessions, s.ToSession())
	}
	return sessions, nil
}

// History loads the full message history of a chat. The returned session is
// marked loaded; an empty history yields a loaded session with no messages.
func (c *Client) History(ctx context.Context, chatID string) (sess *model.Session, err error) {
	ctx, done := telemetry.StartOp(ctx, "history", attribute.String("chat_id", chatID))
	defer func() { done(err) }()

	var resp HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat_history/"+url.PathEscape(chatID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &ClientError{Type: ErrTypeBackend, Message: resp.Error}
	}

	sess = model.NewSession(chatID, resp.ChatName, time.Time{})
	sess.SetMessages(resp.ToMessages())
	return sess, nil
}

// DeleteSession deletes a chat and its messages.
func (c *Client) DeleteSession(ctx context.Context, chatID string) (err error) {
	ctx, done := telemetry.StartOp(ctx, "delete_session", attribute.String("chat_id", chatID))
	defer func() { done(err) }()

	var resp DeleteResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/delete_chat/"+url.PathEscape(chatID), nil, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return &ClientError{Type: ErrTypeBackend, Message: resp.Error}
	}
	return nil
}

// =============================================================================
// STREAMING SEND
// =============================================================================

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// SendMessage posts text to a chat and streams the reply.
// The callback is called synchronously in the order chunks are received.
// Returns when streaming is complete or an error occurs; chunks delivered
// before an error stay delivered.
func (c *Client) SendMessage(ctx context.Context, chatID, text, modelID string, callback StreamCallback) (err error) {
	if modelID == "" {
		modelID = c.config.DefaultModel
	}

	ctx, done := telemetry.StartOp(ctx, "send_message",
		attribute.String("chat_id", chatID),
		attribute.String("model", modelID),
	)
	defer func() { done(err) }()

	body, err := json.Marshal(ChatRequest{ChatID: chatID, Text: text, Model: modelID})
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	// An empty 200 arrives as http.NoBody and streams as an empty reply.
	if resp.Body == nil {
		return ErrNoBody
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	return NewStreamReader(resp.Body).Process(ctx, callback)
}

// =============================================================================
// MOCK INFERENCE
// =============================================================================

// Infer calls the mock inference route.
func (c *Client) Infer(ctx context.Context, in InferenceRequest) (out *InferenceResponse, err error) {
	if in.Model == "" {
		in.Model = c.config.DefaultModel
	}

	ctx, done := telemetry.StartOp(ctx, "infer", attribute.String("model", in.Model))
	defer func() { done(err) }()

	out = &InferenceResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// doJSON performs a JSON request and decodes a 200 response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

func classifyTransportError(err error) error {
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ClientError{Type: ErrTypeUnreachable, Message: ErrUnreachable.Message, Cause: err}
}

func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&errResp); err == nil && errResp.Error != "" {
		return &ClientError{Type: ErrTypeBackend, Message: errResp.Error}
	}
	return &ClientError{Type: ErrTypeBackend, Message: "backend request failed: " + resp.Status}
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return hasType(err, ErrTypeNotFound)
}

// IsUnreachable checks if the backend could not be reached.
func IsUnreachable(err error) bool {
	return hasType(err, ErrTypeUnreachable)
}

// ErrorTypeOf returns the ErrorType of err, or ErrTypeUnknown.
func ErrorTypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

func hasType(err error, t ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == t
	}
	return false
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
