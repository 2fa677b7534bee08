// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the stateless render helpers of the nexus TUI:
// the header with its health pill and mode toggle, message blocks, and the
// shortcut footer.
package components
