// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the playground command line.
//
// Commands:
//
//	playground                       Start the terminal chat client
//	playground tui                   Same as above
//	playground serve                 Serve the mock inference route
//	playground serve --dev-backend   ...and an in-memory chat backend
//	playground sessions list         List chats of the configured user
//	playground sessions delete ID    Delete a chat
//	playground sessions export ID    Write a chat to a Markdown or JSON file
//	playground ask TEXT              Send TEXT into a new chat and print the reply
//	playground mock TEXT             Call the mock inference route, print JSON
//	playground repl                  Line-mode chat with input history
//	playground config init           Write the default config file
//
// Global flags --config, --backend, --model and --log-level override the
// configuration file for a single run.
package cli
