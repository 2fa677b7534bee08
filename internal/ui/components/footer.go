// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/nexus-tui/internal/ui/styles"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// Shortcuts renders key bindings as "key desc" pairs cut to width.
func Shortcuts(theme *styles.Theme, bindings []key.Binding, width int) string {
	parts := make([]string, 0, len(bindings))
	plain := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, theme.ShortcutKey.Render(h.Key)+" "+theme.ShortcutDesc.Render(h.Desc))
		plain = append(plain, h.Key+" "+h.Desc)
	}

	// Drop trailing shortcuts until the plain text fits.
	for len(plain) > 1 && util.Width(strings.Join(plain, "  ")) > width {
		plain = plain[:len(plain)-1]
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "  ")
}
