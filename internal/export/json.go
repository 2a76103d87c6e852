// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/midam/playground/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// Document is the JSON export layout.
type Document struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	CreatedAt  *time.Time        `json:"createdAt,omitempty"`
	ExportedAt time.Time         `json:"exportedAt"`
	Messages   []DocumentMessage `json:"messages"`
}

// DocumentMessage is one message of a Document.
type DocumentMessage struct {
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// JSONExporter exports chats to JSON. It always writes the full history;
// the timestamp option only applies to Markdown.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a chat to indented JSON.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	if err := validate(sess); err != nil {
		return nil, err
	}

	doc := Document{
		ID:         sess.ID,
		Name:       sess.DisplayName(),
		ExportedAt: now().UTC(),
		Messages:   make([]DocumentMessage, 0, len(sess.Messages)),
	}
	if !sess.CreatedAt.IsZero() {
		created := sess.CreatedAt.UTC()
		doc.CreatedAt = &created
	}
	for _, msg := range sess.Messages {
		dm := DocumentMessage{Role: msg.Role, Content: msg.Content}
		if !msg.Timestamp.IsZero() {
			ts := msg.Timestamp.UTC()
			dm.Timestamp = &ts
		}
		doc.Messages = append(doc.Messages, dm)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
