// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/health"
	"github.com/jeranaias/nexus-tui/internal/session"
)

// =============================================================================
// REQUEST RESULTS
// =============================================================================

// CatalogLoadedMsg reports the end of a catalog refresh.
type CatalogLoadedMsg struct {
	Err error
}

// ChatDoneMsg reports the end of a chat request.
type ChatDoneMsg struct {
	Reply conversation.Message
	Err   error
}

// ImageDoneMsg reports the end of an image request.
type ImageDoneMsg struct {
	Reply conversation.Message
	Err   error
}

// SaveDoneMsg reports the end of a session save.
type SaveDoneMsg struct {
	Result *session.Result
	Err    error
}

// CopyDoneMsg reports the end of a clipboard write.
type CopyDoneMsg struct {
	Err error
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthMsg carries a new monitor status.
type HealthMsg struct {
	Status health.Status
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// ConfigReloadedMsg carries a configuration re-read after the file changed.
// Config is nil when Err is set.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}
