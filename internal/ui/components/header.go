// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/health"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// HeaderInfo is everything the header shows.
type HeaderInfo struct {
	Health       health.Status
	Mode         conversation.Mode
	ImageEnabled bool
	Selection    catalog.Selection
	ImageModel   string
	Width        int
}

// HealthPill renders the colored server state badge.
func HealthPill(theme *styles.Theme, st health.Status) string {
	switch st.State {
	case health.StateOnline:
		return theme.HealthOnline.Render("● online")
	case health.StateDown:
		return theme.HealthDown.Render("✕ down")
	default:
		return theme.HealthChecking.Render("○ checking")
	}
}

// ModeToggle renders "Chat | Image" with the active mode highlighted. Image
// is struck through when the server cannot generate images.
func ModeToggle(theme *styles.Theme, active conversation.Mode, imageEnabled bool) string {
	chat := theme.ModeInactive.Render("Chat")
	image := theme.ModeInactive.Render("Image")
	if active == conversation.ModeChat {
		chat = theme.ModeActive.Render("Chat")
	} else {
		image = theme.ModeActive.Render("Image")
	}
	if !imageEnabled {
		image = theme.ModeDisabled.Render("Image")
	}
	return chat + theme.HeaderInfo.Render(" | ") + image
}

// LastChecked formats the time of the last completed probe.
func LastChecked(st health.Status, now time.Time) string {
	if st.LastChecked.IsZero() {
		return "never checked"
	}
	ago := now.Sub(st.LastChecked).Round(time.Second)
	if ago < time.Second {
		return "checked just now"
	}
	return fmt.Sprintf("checked %s ago", ago)
}

// Header renders the top bar.
func Header(theme *styles.Theme, info HeaderInfo) string {
	brand := theme.HeaderBrand.Render("nexus")
	pill := HealthPill(theme, info.Health)
	toggle := ModeToggle(theme, info.Mode, info.ImageEnabled)

	var target string
	if info.Mode == conversation.ModeImage {
		target = info.ImageModel
	} else {
		target = info.Selection.Model
		if info.Selection.Provider != "" {
			target += " via " + info.Selection.Provider
		}
	}

	left := strings.Join([]string{brand, pill, toggle}, "  ")
	room := info.Width - lipgloss.Width(left) - 4
	right := ""
	if room > 8 && target != "" {
		right = theme.HeaderInfo.Render(util.Truncate(target, room))
	}

	gap := info.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return theme.Header.Width(info.Width).Render(left + strings.Repeat(" ", gap) + right)
}
