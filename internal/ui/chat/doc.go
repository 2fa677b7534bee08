// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea model for the nexus terminal client.
//
// One model drives both modes. The conversation store keeps a chat and an
// image history side by side; switching modes only changes which one is
// shown and where input goes. At most one request (chat, image or save) is
// in flight at a time, and further submissions are ignored until it ends.
//
// Server health arrives from a health.Monitor through a channel that the
// model re-arms after every status update.
package chat
