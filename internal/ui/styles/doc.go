// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the nexus TUI.

All colors use Lip Gloss AdaptiveColor so the same palette reads well on
light and dark terminals.

# Color System (colors.go)

  - Purple - assistant messages, selections
  - Cyan - brand, user highlights, active mode
  - Emerald - online health state
  - Amber - checking health state
  - Rose - errors, down health state

# Theme System (theme.go)

	theme := styles.NewTheme()
	pill := theme.HealthOnline.Render("online")

Terminals without color support get bold/underline fallbacks based on
termenv's profile detection.
*/
package styles
