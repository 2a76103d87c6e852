// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

// =============================================================================
// MODEL OPTION TYPE
// =============================================================================

// ModelOption is one entry of the model selector.
type ModelOption struct {
	// ID is the identifier sent to the backend
	ID string `toml:"id" json:"id"`

	// Name is the human-readable display name
	Name string `toml:"name" json:"name"`
}

// DefaultModelID is selected when nothing else is configured.
const DefaultModelID = "gemini-2.5-flash"

// DefaultModels returns the built-in model catalogue.
func DefaultModels() []ModelOption {
	return []ModelOption{
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
		{ID: "gpt-4", Name: "GPT-4"},
		{ID: "claude-3", Name: "Claude 3"},
	}
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is an ordered list of selectable models with a default.
type Catalog struct {
	options   []ModelOption
	defaultID string
}

// NewCatalog builds a catalogue. An empty options list falls back to
// DefaultModels, and an unknown defaultID falls back to the first option.
func NewCatalog(options []ModelOption, defaultID string) *Catalog {
	if len(options) == 0 {
		options = DefaultModels()
	}
	c := &Catalog{options: append([]ModelOption(nil), options...)}
	if _, ok := c.Lookup(defaultID); ok {
		c.defaultID = defaultID
	} else {
		c.defaultID = c.options[0].ID
	}
	return c
}

// Options returns a copy of the catalogue entries.
func (c *Catalog) Options() []ModelOption {
	return append([]ModelOption(nil), c.options...)
}

// Default returns the default model.
func (c *Catalog) Default() ModelOption {
	opt, _ := c.Lookup(c.defaultID)
	return opt
}

// Lookup finds a model by ID.
func (c *Catalog) Lookup(id string) (ModelOption, bool) {
	for _, opt := range c.options {
		if opt.ID == id {
			return opt, true
		}
	}
	return ModelOption{}, false
}

// DisplayName returns the name for id, or id itself when unknown.
func (c *Catalog) DisplayName(id string) string {
	if opt, ok := c.Lookup(id); ok && opt.Name != "" {
		return opt.Name
	}
	return id
}

// Next returns the model after id, wrapping around. Unknown ids yield the
// first entry.
func (c *Catalog) Next(id string) ModelOption {
	for i, opt := range c.options {
		if opt.ID == id {
			return c.options[(i+1)%len(c.options)]
		}
	}
	return c.options[0]
}

// Len returns the number of models.
func (c *Catalog) Len() int {
	return len(c.options)
}
