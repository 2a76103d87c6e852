// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the external chat backend.
//
// The backend owns sessions, history and inference. This package covers the
// request/response operations (create, list, history, delete), the streamed
// send-message exchange and the mock inference route.
//
// # Key Types
//
//   - Client: HTTP client with ClientConfig (base URL, user, timeouts)
//   - StreamReader: Reads a chunked text body into an accumulator
//   - StreamChunk: One decoded chunk plus the text accumulated so far
//   - ClientError: Typed error with an ErrorType for logging and the CLI
//
// # Usage
//
//	client := backend.NewClientWithConfig(&backend.ClientConfig{
//	    BaseURL: "http://localhost:8000",
//	    UserID:  "FrontendUser",
//	})
//	id, err := client.CreateSession(ctx)
//	err = client.SendMessage(ctx, id, "Hello", "gemini-2.5-flash", func(c backend.StreamChunk) {
//	    fmt.Print(c.Text)
//	})
package backend
