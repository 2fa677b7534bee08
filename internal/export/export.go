// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved gateway sessions to Markdown or JSON files.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/nexus-tui/internal/gateway"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// ErrEmptySession is returned when a session has no messages to export.
var ErrEmptySession = errors.New("session has no messages")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a session in one output format.
type Exporter interface {
	// Export converts a session to the target format.
	Export(s *gateway.Session) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ExportToFile writes. Empty means the working directory.
	OutputDir string

	// IncludeMetadata adds the model, provider and dates.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps where the gateway kept them.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"md", "json"}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// ExportToFile renders the session and writes it atomically into
// opts.OutputDir, returning the path written.
func ExportToFile(s *gateway.Session, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	data, err := exporter.Export(s)
	if err != nil {
		return "", err
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, Filename(s, exporter, time.Now()))
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// Filename returns the file name used for a session exported at now.
func Filename(s *gateway.Session, exporter Exporter, now time.Time) string {
	name := s.Title
	if strings.TrimSpace(name) == "" {
		name = s.ID
	}
	return fmt.Sprintf("session_%s_%s%s", sanitizeFilename(name), now.Format("20060102_150405"), exporter.FileExtension())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// maxNameLen caps the title part of a file name, in runes.
const maxNameLen = 50

var filenameReplacer = map[rune]rune{
	'/':  '-',
	'\\': '-',
	':':  '-',
	'*':  '-',
	'?':  '-',
	'"':  '-',
	'<':  '-',
	'>':  '-',
	'|':  '-',
	' ':  '_',
	'\t': '_',
	'\n': '_',
	'\r': '_',
}

// sanitizeFilename replaces characters that are invalid in file names on
// Windows or Unix.
func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > maxNameLen {
		runes = runes[:maxNameLen]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		if repl, ok := filenameReplacer[r]; ok {
			out = append(out, repl)
		} else if r < 32 || r == 127 {
			out = append(out, '-')
		} else {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "session"
	}
	return string(out)
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Local().Format("15:04:05")
}

func validate(s *gateway.Session) error {
	if s == nil {
		return errors.New("session is nil")
	}
	if len(s.Messages) == 0 {
		return ErrEmptySession
	}
	return nil
}
