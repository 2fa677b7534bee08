// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/nexus-tui/internal/gateway"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// document is the top-level object of a JSON export.
type document struct {
	Generator  string           `json:"generator"`
	ExportedAt time.Time        `json:"exported_at"`
	Session    *gateway.Session `json:"session"`
}

// JSONExporter exports sessions as JSON. The session is always written in
// full, in the shape the gateway returns it, so options do not filter it.
type JSONExporter struct {
	options *Options
	now     func() time.Time
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts, now: time.Now}
}

// Export converts a session to indented JSON.
func (e *JSONExporter) Export(s *gateway.Session) ([]byte, error) {
	if err := validate(s); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(document{
		Generator:  "nexus",
		ExportedAt: e.now().UTC(),
		Session:    s,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
