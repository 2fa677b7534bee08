// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the in-memory message history of a client
// session, kept separately for each interaction mode.
//
// The Store owns one ordered message sequence per Mode plus the active mode.
// Switching modes never clears either sequence, so a user can leave chat for
// image generation and come back to the same conversation. Messages are
// immutable values; Current returns a copy that callers may keep.
package conversation
