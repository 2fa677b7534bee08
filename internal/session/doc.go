// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session saves finished chat conversations to the gateway and
// browses the saved history.
//
// # Saving
//
// A save creates one remote session and then appends every message to it,
// one call per message, in order. The appends address the session by the ID
// the gateway returned from creation, never by title. If an append fails the
// save stops and reports how many messages made it (a PartialSave error).
// Nothing is retried and nothing already appended is rolled back.
//
//	saver := session.NewSaver(client)
//	res, err := saver.Save(ctx, store.Current(conversation.ModeChat), "", sel)
//
// # History
//
// History lists, opens and deletes saved sessions. When an archive is
// attached, opened and saved sessions are mirrored into it and served from
// it while the gateway is unreachable.
package session
