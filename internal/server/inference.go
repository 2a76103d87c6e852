// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/midam/playground/internal/backend"
)

// ErrProcessRequest is the body text for a request that cannot be handled.
const ErrProcessRequest = "Failed to process request"

// FormatMockResponse builds the simulated reply. The input text and model are
// embedded verbatim.
func FormatMockResponse(modelID, text string, hasImage bool) string {
	reply := fmt.Sprintf("This is a simulated response from %s. The input was: \"%s\"", modelID, text)
	if hasImage {
		reply += " (with image)"
	}
	return reply
}

type inferenceHandler struct {
	delay  time.Duration
	logger *slog.Logger
}

// handle serves POST /api/chat.
func (h *inferenceHandler) handle(c *gin.Context) {
	var req backend.InferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("mock inference bad request", "err", err)
		c.JSON(http.StatusInternalServerError, backend.ErrorResponse{Error: ErrProcessRequest})
		return
	}

	if err := sleepCtx(c.Request.Context(), h.delay); err != nil {
		// Client went away; nobody is left to read a response.
		c.Status(http.StatusRequestTimeout)
		return
	}

	resp := backend.InferenceResponse{
		ChatID:    req.ChatID,
		Response:  FormatMockResponse(req.Model, req.Text, req.Image != ""),
		Model:     req.Model,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	h.logger.Debug("mock inference", "chat_id", req.ChatID, "model", req.Model, "image", req.Image != "")
	c.JSON(http.StatusOK, resp)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
