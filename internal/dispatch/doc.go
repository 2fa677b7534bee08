// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch sends chat and image requests to the gateway and records
// the outcome in the conversation store.
//
// Each call makes at most one network request under its own time budget and
// ends in exactly one outcome: the new assistant message, or one classified
// *apierr.Error. The user's message is appended before the request goes out
// and is never retracted. Only one failure changes state beyond that: an
// image request the gateway declines (HTTP 501) switches the active mode back
// to chat.
//
// The dispatcher holds no lock across requests. Keeping a single submission
// in flight is the caller's job.
package dispatch
