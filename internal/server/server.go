// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultPort is where the mock endpoint listens when none is configured.
	DefaultPort = 3000

	// DefaultDelay is the artificial latency of the mock endpoint.
	DefaultDelay = time.Second

	// DefaultStreamRate is the dev backend pacing in chunks per second.
	DefaultStreamRate = 100
)

// DefaultAllowedOrigins are the browser origins allowed by CORS.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// =============================================================================
// SERVER
// =============================================================================

// Server is the HTTP host for the mock endpoint and dev backend.
type Server struct {
	port       int
	delay      time.Duration
	streamRate float64
	devBackend bool
	origins    []string
	logger     *slog.Logger

	store *Store

	handlerOnce sync.Once
	handler     http.Handler

	httpServer *http.Server
	closed     bool
	mu         sync.Mutex
}

// NewServer creates a server listening on port with default settings.
func NewServer(port int) *Server {
	if port <= 0 {
		port = DefaultPort
	}
	return &Server{
		port:       port,
		delay:      DefaultDelay,
		streamRate: DefaultStreamRate,
		origins:    DefaultAllowedOrigins,
		logger:     slog.Default(),
		store:      NewStore(),
	}
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithDelay sets the mock endpoint latency. Negative values are treated as 0.
func (s *Server) WithDelay(d time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.delay = d
	return s
}

// WithDevBackend enables the in-memory backend routes.
func (s *Server) WithDevBackend(enabled bool) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devBackend = enabled
	return s
}

// WithStreamRate sets the dev backend pacing. Zero or less disables pacing.
func (s *Server) WithStreamRate(chunksPerSecond float64) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamRate = chunksPerSecond
	return s
}

// WithCORS replaces the allowed origins.
func (s *Server) WithCORS(origins ...string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origins = origins
	return s
}

// Store returns the dev backend store.
func (s *Server) Store() *Store {
	return s.store
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// Handler returns the gin engine. It is built once; options set afterwards
// have no effect.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.handler = s.setupRoutes()
	})
	return s.handler
}

// setupRoutes builds the engine. Called with s.mu held.
func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RecoveryMiddleware(s.logger), LoggingMiddleware(s.logger), CORSMiddleware(s.origins))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dev_backend": s.devBackend})
	})

	inf := &inferenceHandler{delay: s.delay, logger: s.logger}
	r.POST("/api/chat", inf.handle)

	if s.devBackend {
		dev := &devHandler{store: s.store, rate: s.streamRate, logger: s.logger}
		r.POST("/new_chat", dev.newChat)
		r.POST("/chat", dev.chat)
		r.GET("/chat_history/:chat_id", dev.history)
		r.GET("/user_chats/:user_id", dev.userChats)
		r.DELETE("/delete_chat/:chat_id", dev.deleteChat)
	}

	return r
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	h := s.Handler()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.httpServer = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streamed replies can run long; no write timeout.
		IdleTimeout: 120 * time.Second,
	}
	srv := s.httpServer
	logger := s.logger
	s.mu.Unlock()

	logger.Info("server listening", "addr", ln.Addr().String(), "dev_backend", s.devBackend)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server. A later Serve returns at once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("server shutting down")
	return srv.Shutdown(ctx)
}
