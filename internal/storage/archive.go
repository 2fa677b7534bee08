// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/nexus-tui/internal/gateway"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL DEFAULT '',
    archived_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    session_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    timestamp TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (session_id, position),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session is not in the archive.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &ArchiveError{Message: "session not found in archive"}

// ArchiveError represents an archive lookup error.
type ArchiveError struct {
	Message string
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing archive errors.
func (e *ArchiveError) Is(target error) bool {
	t, ok := target.(*ArchiveError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is a SQLite-backed copy of gateway sessions.
type Archive struct {
	db *sql.DB
}

// DefaultPath returns ~/.nexus/archive.db.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".nexus", "archive.db"), nil
}

// Open opens or creates the archive at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// A single connection keeps the foreign_keys pragma in effect for every query.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Put stores sess, replacing any previous copy and its messages.
func (a *Archive) Put(ctx context.Context, sess gateway.Session) error {
	if sess.ID == "" {
		return errors.New("archive: session has no id")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("archive: clear messages: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, model, provider, created_at, updated_at, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, model = excluded.model, provider = excluded.provider,
		   created_at = excluded.created_at, updated_at = excluded.updated_at,
		   archived_at = excluded.archived_at`,
		sess.ID, sess.Title, sess.Model, sess.Provider,
		formatTime(sess.CreatedAt.Time), formatTime(sess.UpdatedAt.Time), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("archive: upsert session: %w", err)
	}

	for i, m := range sess.Messages {
		var ts time.Time
		if m.Timestamp != nil {
			ts = m.Timestamp.Time
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
			sess.ID, i, m.Role, m.Content, formatTime(ts)); err != nil {
			return fmt.Errorf("archive: insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Get returns one archived session with its messages in order.
func (a *Archive) Get(ctx context.Context, id string) (*gateway.Session, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT id, title, model, provider, created_at, updated_at FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get session: %w", err)
	}

	msgs, err := a.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Messages = msgs
	return sess, nil
}

// List returns every archived session, most recently updated first, with
// messages loaded.
func (a *Archive) List(ctx context.Context) ([]gateway.Session, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, title, model, provider, created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC, archived_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("archive: list sessions: %w", err)
	}
	defer rows.Close()

	var out []gateway.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("archive: scan session: %w", err)
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: list sessions: %w", err)
	}
	rows.Close()

	for i := range out {
		msgs, err := a.messages(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Messages = msgs
	}
	return out, nil
}

// Delete removes a session and its messages. Deleting a missing session is
// not an error.
func (a *Archive) Delete(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("archive: delete session: %w", err)
	}
	return nil
}

func (a *Archive) messages(ctx context.Context, id string) ([]gateway.Message, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("archive: list messages: %w", err)
	}
	defer rows.Close()

	out := []gateway.Message{}
	for rows.Next() {
		var m gateway.Message
		var ts string
		if err := rows.Scan(&m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("archive: scan message: %w", err)
		}
		if t := parseTime(ts); !t.IsZero() {
			m.Timestamp = &gateway.Timestamp{Time: t}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*gateway.Session, error) {
	var sess gateway.Session
	var created, updated string
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Model, &sess.Provider, &created, &updated); err != nil {
		return nil, err
	}
	sess.CreatedAt = gateway.Timestamp{Time: parseTime(created)}
	sess.UpdatedAt = gateway.Timestamp{Time: parseTime(updated)}
	return &sess, nil
}

// Timestamps are stored as UTC RFC 3339 text so they sort lexically.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
