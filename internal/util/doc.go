// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the nexus packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - Truncate: display-width aware truncation with an ellipsis
//   - OneLine: folds whitespace so text fits on a single line
//   - PadRight: pads text to a display width
package util
