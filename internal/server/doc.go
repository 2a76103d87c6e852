// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server hosts the mock inference endpoint and, optionally, an
// in-memory development backend implementing the chat backend contract.
//
// Routes:
//
//	POST   /api/chat                mock inference (always)
//	POST   /new_chat                dev backend
//	POST   /chat                    dev backend, streamed text/plain
//	GET    /chat_history/:chat_id   dev backend
//	GET    /user_chats/:user_id     dev backend
//	DELETE /delete_chat/:chat_id    dev backend
//	GET    /health
//
// Usage:
//
//	srv := server.NewServer(3000).
//		WithLogger(logger).
//		WithDevBackend(true)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
