// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/gateway"
)

// AllModels disables the model filter.
const AllModels = "all"

// Directory is the part of the gateway history browsing needs.
type Directory interface {
	ListSessions(ctx context.Context) ([]gateway.Session, error)
	GetSession(ctx context.Context, id string) (*gateway.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Source says where a history result came from.
type Source int

const (
	FromGateway Source = iota
	FromArchive
)

func (s Source) String() string {
	if s == FromArchive {
		return "archive"
	}
	return "gateway"
}

// History browses saved sessions.
type History struct {
	remote      Directory
	archive     Archive
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewHistory creates a history browser over remote.
func NewHistory(remote Directory) *History {
	return &History{
		remote:      remote,
		callTimeout: DefaultCallTimeout,
		logger:      slog.Default(),
	}
}

// WithArchive attaches a local archive used for mirroring and offline reads.
func (h *History) WithArchive(a Archive) *History {
	h.archive = a
	return h
}

// WithCallTimeout sets the per-call budget. Zero keeps the current value.
func (h *History) WithCallTimeout(d time.Duration) *History {
	if d > 0 {
		h.callTimeout = d
	}
	return h
}

// WithLogger sets the history logger.
func (h *History) WithLogger(l *slog.Logger) *History {
	if l != nil {
		h.logger = l
	}
	return h
}

// List returns the saved sessions in gateway order. If the gateway cannot be
// reached and an archive is attached, the archived sessions are returned.
func (h *History) List(ctx context.Context) ([]gateway.Session, Source, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	sessions, err := h.remote.ListSessions(callCtx)
	if err == nil {
		return sessions, FromGateway, nil
	}
	err = apierr.Classify(apierr.OpSession, err)
	if !h.canFallBack(err) {
		return nil, FromGateway, err
	}

	archived, aerr := h.archive.List(ctx)
	if aerr != nil {
		h.logger.Warn("archive list failed", "err", aerr)
		return nil, FromGateway, err
	}
	h.logger.Info("gateway unreachable, listing archived sessions", "count", len(archived))
	return archived, FromArchive, nil
}

// Get returns one session with its messages and mirrors it into the archive.
// If the gateway cannot be reached the archived copy is returned when present.
func (h *History) Get(ctx context.Context, id string) (*gateway.Session, Source, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	sess, err := h.remote.GetSession(callCtx, id)
	if err == nil {
		if h.archive != nil {
			if perr := h.archive.Put(ctx, *sess); perr != nil {
				h.logger.Warn("archive write failed", "session", id, "err", perr)
			}
		}
		return sess, FromGateway, nil
	}
	err = apierr.Classify(apierr.OpSession, err)
	if !h.canFallBack(err) {
		return nil, FromGateway, err
	}

	archived, aerr := h.archive.Get(ctx, id)
	if aerr != nil {
		return nil, FromGateway, err
	}
	return archived, FromArchive, nil
}

// Delete removes a session from the gateway and from the archive.
func (h *History) Delete(ctx context.Context, id string) error {
	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	if err := h.remote.DeleteSession(callCtx, id); err != nil {
		return apierr.Classify(apierr.OpSession, err)
	}
	if h.archive != nil {
		if err := h.archive.Delete(ctx, id); err != nil {
			h.logger.Warn("archive delete failed", "session", id, "err", err)
		}
	}
	return nil
}

func (h *History) canFallBack(err error) bool {
	return h.archive != nil && (errors.Is(err, apierr.ErrNetwork) || errors.Is(err, apierr.ErrTimeout))
}

// =============================================================================
// FILTERING
// =============================================================================

// Filter keeps sessions whose title contains search (case-insensitive) and
// whose model equals model. An empty search matches everything; an empty
// model or AllModels disables the model filter.
func Filter(sessions []gateway.Session, search, model string) []gateway.Session {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]gateway.Session, 0, len(sessions))
	for _, s := range sessions {
		if needle != "" && !strings.Contains(strings.ToLower(s.Title), needle) {
			continue
		}
		if model != "" && model != AllModels && s.Model != model {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Models returns the distinct models used by sessions in first-seen order.
func Models(sessions []gateway.Session) []string {
	seen := make(map[string]bool, len(sessions))
	var out []string
	for _, s := range sessions {
		if s.Model == "" || seen[s.Model] {
			continue
		}
		seen[s.Model] = true
		out = append(out, s.Model)
	}
	return out
}
