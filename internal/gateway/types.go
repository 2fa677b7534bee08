// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// TIMESTAMP
// =============================================================================

// Timestamp decodes the gateway's ISO-8601 timestamps, which may or may not
// carry a zone offset. Zone-less values are read as local time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// =============================================================================
// CATALOG TYPES
// =============================================================================

// Capabilities reports which features the gateway enables.
type Capabilities struct {
	Chat            bool `json:"chat"`
	ImageGeneration bool `json:"image_generation"`
}

// capabilitiesBody distinguishes a missing flag from an explicit false.
type capabilitiesBody struct {
	Chat            *bool `json:"chat"`
	ImageGeneration *bool `json:"image_generation"`
}

// ModelsResponse is the model catalog: chat model -> ordered providers, plus
// the flat list of image models.
type ModelsResponse struct {
	Models           map[string][]string `json:"models"`
	ImageModels      []string            `json:"image_models"`
	TotalModels      int                 `json:"total_models"`
	TotalImageModels int                 `json:"total_image_models"`
}

// ProvidersResponse lists every provider referenced by the catalog.
type ProvidersResponse struct {
	Providers      []string `json:"providers"`
	TotalProviders int      `json:"total_providers"`
}

// ModelHealth is the smoke-test outcome for one model.
type ModelHealth struct {
	Model    string `json:"model"`
	OK       bool   `json:"ok"`
	Provider string `json:"provider,omitempty"`
	Sample   string `json:"sample,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ModelsHealthResponse is the result of a per-model smoke test.
type ModelsHealthResponse struct {
	Results      []ModelHealth `json:"results"`
	Working      []string      `json:"working"`
	CountWorking int           `json:"count_working"`
}

// =============================================================================
// CHAT AND IMAGE TYPES
// =============================================================================

// Message is a conversation turn as the gateway sees it.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Provider    string    `json:"provider,omitempty"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// ChatResponse is the reply to POST /api/chat.
type ChatResponse struct {
	Message   string         `json:"message"`
	Model     string         `json:"model"`
	Provider  string         `json:"provider"`
	Timestamp Timestamp      `json:"timestamp"`
	Usage     map[string]any `json:"usage,omitempty"`
}

// ImageRequest is the body of POST /api/generate-image.
type ImageRequest struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model"`
	Provider string `json:"provider,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Quality  string `json:"quality"`
	Style    string `json:"style"`
}

// ImageResponse is the reply to POST /api/generate-image.
type ImageResponse struct {
	ImageURL  string    `json:"image_url"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	Timestamp Timestamp `json:"timestamp"`
	Prompt    string    `json:"prompt"`
}

// =============================================================================
// SESSION TYPES
// =============================================================================

// Session is a remotely stored conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}
