// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/gateway"
)

// DefaultCallTimeout bounds each remote call a save or history lookup makes.
const DefaultCallTimeout = 30 * time.Second

// Remote is the part of the gateway a save needs.
type Remote interface {
	CreateSession(ctx context.Context, title, model, provider string) (*gateway.Session, error)
	AppendMessage(ctx context.Context, sessionID string, msg gateway.Message) error
}

// Archive is a local copy of sessions. *storage.Archive satisfies it.
type Archive interface {
	Put(ctx context.Context, sess gateway.Session) error
	Get(ctx context.Context, id string) (*gateway.Session, error)
	List(ctx context.Context) ([]gateway.Session, error)
	Delete(ctx context.Context, id string) error
}

// Result describes a completed save.
type Result struct {
	SessionID string
	Title     string
	Saved     int
}

// Saver persists conversations as remote sessions.
type Saver struct {
	remote      Remote
	archive     Archive
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewSaver creates a saver over remote.
func NewSaver(remote Remote) *Saver {
	return &Saver{
		remote:      remote,
		callTimeout: DefaultCallTimeout,
		logger:      slog.Default(),
	}
}

// WithArchive mirrors successful saves into a.
func (s *Saver) WithArchive(a Archive) *Saver {
	s.archive = a
	return s
}

// WithCallTimeout sets the per-call budget. Zero keeps the current value.
func (s *Saver) WithCallTimeout(d time.Duration) *Saver {
	if d > 0 {
		s.callTimeout = d
	}
	return s
}

// WithLogger sets the saver logger.
func (s *Saver) WithLogger(l *slog.Logger) *Saver {
	if l != nil {
		s.logger = l
	}
	return s
}

// Save stores msgs as a new remote session. An empty title is derived from
// the first user message.
//
// An empty conversation fails with KindEmptyConversation before any remote
// call. If the K-th append fails the result is a KindPartialSave error
// reporting K-1 of len(msgs) saved, with the session ID set; the remote
// session is left as is.
func (s *Saver) Save(ctx context.Context, msgs []conversation.Message, title string, sel catalog.Selection) (*Result, error) {
	if len(msgs) == 0 {
		return nil, apierr.EmptyConversation()
	}
	if title == "" {
		title = DeriveTitle(msgs)
	}

	created, err := s.create(ctx, title, sel)
	if err != nil {
		err = apierr.Classify(apierr.OpSession, err)
		s.logger.Warn("session create failed", "title", title, "err", err)
		return nil, err
	}

	wire := make([]gateway.Message, 0, len(msgs))
	for i, m := range msgs {
		wm := gateway.Message{Role: m.Role.String(), Content: m.Content}
		if !m.Timestamp.IsZero() {
			wm.Timestamp = &gateway.Timestamp{Time: m.Timestamp}
		}
		if err := s.append(ctx, created.ID, wm); err != nil {
			err = apierr.Classify(apierr.OpSession, err)
			s.logger.Warn("session append failed", "session", created.ID, "saved", i, "total", len(msgs), "err", err)
			return nil, apierr.PartialSave(created.ID, i, len(msgs), err)
		}
		wire = append(wire, wm)
	}

	s.logger.Info("session saved", "session", created.ID, "title", title, "messages", len(msgs))

	if s.archive != nil {
		if created.Title == "" {
			created.Title = title
		}
		created.Messages = wire
		created.UpdatedAt = gateway.Timestamp{Time: time.Now()}
		if err := s.archive.Put(ctx, *created); err != nil {
			s.logger.Warn("archive write failed", "session", created.ID, "err", err)
		}
	}

	return &Result{SessionID: created.ID, Title: title, Saved: len(msgs)}, nil
}

func (s *Saver) create(ctx context.Context, title string, sel catalog.Selection) (*gateway.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.remote.CreateSession(ctx, title, sel.Model, sel.Provider)
}

func (s *Saver) append(ctx context.Context, id string, msg gateway.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.remote.AppendMessage(ctx, id, msg)
}
