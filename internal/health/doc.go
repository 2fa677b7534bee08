// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package health tracks whether the gateway is reachable.
//
// A Monitor runs one check cycle immediately and then one per interval,
// measured from the start of each cycle. A cycle enters Checking, probes
// once, and on failure waits a short retry delay and probes a second time.
// Either probe succeeding means Online; two failures mean Down. Every probe
// has its own timeout.
//
// State transitions:
//
//	Checking -> Online | Down
//	Online   -> Checking
//	Down     -> Checking
//
// Stop cancels the pending wait and any in-flight probe and returns once the
// monitor goroutine has exited.
package health
