// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apierr classifies gateway failures into a closed set of error kinds.
//
// Every failure surfaced by the client (transport errors, non-2xx responses,
// local precondition violations, partial session saves) becomes an *Error
// carrying a Kind and the operation that produced it. Callers branch on the
// kind with errors.Is against the sentinels, and render exactly one message
// per failure with UserMessage.
//
// # Kinds
//
//   - KindTimeout: HTTP 408 or the client-side budget elapsed
//   - KindServer: HTTP 500 (with detail) or any other non-2xx response
//   - KindUnsupported: HTTP 501 from image generation
//   - KindNetwork: the gateway could not be reached
//   - KindEmptyConversation: nothing to save
//   - KindPartialSave: a session append failed part way through
//   - KindInvalidRequest: a local precondition failed before any network call
//
// Unsupported is the only kind with a state side effect: the caller must
// switch the active conversation mode back to chat (see ForcesChatMode).
package apierr
