// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local session archive for nexus.
//
// The gateway owns saved sessions. This package keeps a read-only copy of
// the sessions this client has saved or opened so history can be browsed
// while the gateway is unreachable. Entries are keyed by the gateway's
// session ID and replaced wholesale on every write.
//
// # Key Types
//
//   - Archive: SQLite-backed session archive
//
// # Usage
//
//	archive, err := storage.Open(path)
//	defer archive.Close()
//	err = archive.Put(ctx, session)
//	sessions, err := archive.List(ctx)
//
// # Storage Location
//
// The archive lives in ~/.nexus/archive.db by default.
package storage
