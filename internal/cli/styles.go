// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// =============================================================================
// CLI STYLES
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(14)

	successStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
	errorStyle   = lipgloss.NewStyle().Foreground(styles.Rose)
	warningStyle = lipgloss.NewStyle().Foreground(styles.Amber)
	dimStyle     = lipgloss.NewStyle().Foreground(styles.TextMuted)
)

// Status is the outcome shown by RenderStatus.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// RenderStatus returns a bracketed status tag.
func RenderStatus(s Status) string {
	switch s {
	case StatusOK:
		return successStyle.Render("[OK]")
	case StatusWarn:
		return warningStyle.Render("[WARN]")
	default:
		return errorStyle.Render("[FAIL]")
	}
}

// RenderLabel renders a fixed-width label followed by value.
func RenderLabel(label, value string) string {
	return labelStyle.Render(label) + value
}
