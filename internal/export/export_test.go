// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/gateway"
)

var fixedNow = time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)

func testSession() *gateway.Session {
	at := gateway.Timestamp{Time: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)}
	return &gateway.Session{
		ID:        "abc123",
		Title:     "Go: channels & *select*",
		Model:     "microsoft/phi-4",
		Provider:  "DeepInfra",
		CreatedAt: at,
		UpdatedAt: at,
		Messages: []gateway.Message{
			{Role: "user", Content: "How do I select?", Timestamp: &at},
			{Role: "assistant", Content: "```go\nselect {}\n```\n"},
		},
	}
}

func TestForFormat(t *testing.T) {
	for _, name := range []string{"md", "Markdown", " json "} {
		ex, err := ForFormat(name, nil)
		require.NoError(t, err, name)
		assert.NotNil(t, ex)
	}

	_, err := ForFormat("html", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "md, json")
}

func TestMarkdownExport(t *testing.T) {
	ex := NewMarkdownExporter(nil)
	ex.now = func() time.Time { return fixedNow }

	out, err := ex.Export(testSession())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, `title: "Go: channels & *select*"`)
	assert.Contains(t, md, "model: microsoft/phi-4\n")
	assert.Contains(t, md, "provider: DeepInfra\n")
	assert.Contains(t, md, "messages: 2\n")
	assert.Contains(t, md, "# Go: channels & \\*select\\*\n")
	assert.Contains(t, md, "### User <sub>")
	assert.Contains(t, md, "### Assistant\n\n```go\nselect {}\n```\n\n")
	assert.Contains(t, md, "*Exported from nexus on March 4, 2025 at 10:30 AM*")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	ex := NewMarkdownExporter(&Options{})
	out, err := ex.Export(testSession())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# "))
	assert.NotContains(t, md, "Session Information")
	assert.NotContains(t, md, "<sub>")
}

func TestMarkdownExport_UntitledUsesID(t *testing.T) {
	s := testSession()
	s.Title = ""
	out, err := NewMarkdownExporter(&Options{}).Export(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), "# Session abc123\n")
}

func TestJSONExport(t *testing.T) {
	ex := NewJSONExporter(nil)
	ex.now = func() time.Time { return fixedNow }

	out, err := ex.Export(testSession())
	require.NoError(t, err)

	var doc struct {
		Generator  string          `json:"generator"`
		ExportedAt time.Time       `json:"exported_at"`
		Session    gateway.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "nexus", doc.Generator)
	assert.True(t, fixedNow.Equal(doc.ExportedAt))
	assert.Equal(t, "abc123", doc.Session.ID)
	require.Len(t, doc.Session.Messages, 2)
	assert.Equal(t, "How do I select?", doc.Session.Messages[0].Content)
}

func TestExport_EmptySession(t *testing.T) {
	s := testSession()
	s.Messages = nil
	for _, ex := range []Exporter{NewMarkdownExporter(nil), NewJSONExporter(nil)} {
		_, err := ex.Export(s)
		assert.ErrorIs(t, err, ErrEmptySession)
	}

	_, err := NewJSONExporter(nil).Export(nil)
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	ex := NewJSONExporter(nil)

	path, err := ExportToFile(testSession(), ex, &Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "session_Go-_channels_&_-select-_"))
	assert.Equal(t, ".json", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "abc123"`)
}

func TestFilename(t *testing.T) {
	s := testSession()
	s.Title = "  "
	assert.Equal(t, "session_abc123_20250304_103000.md", Filename(s, NewMarkdownExporter(nil), fixedNow))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a/b\\c:d", "a-b-c-d"},
		{"two words", "two_words"},
		{"bell\x07", "bell-"},
		{"", "session"},
		{strings.Repeat("é", 60), strings.Repeat("é", maxNameLen)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `""`, escapeYAML(""))
	assert.Equal(t, `"a: \"b\"\n"`, escapeYAML("a: \"b\"\n"))
}
