// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderInfo  lipgloss.Style

	// ==========================================================================
	// HEALTH PILL
	// ==========================================================================

	HealthChecking lipgloss.Style
	HealthOnline   lipgloss.Style
	HealthDown     lipgloss.Style

	// ==========================================================================
	// MODE TOGGLE
	// ==========================================================================

	ModeActive   lipgloss.Style
	ModeInactive lipgloss.Style
	ModeDisabled lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style
	MessageMeta      lipgloss.Style
	ImageLink        lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputContainer lipgloss.Style
	StatusBar      lipgloss.Style
	StatusError    lipgloss.Style
	StatusInfo     lipgloss.Style
	Spinner        lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
	Empty          lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return NewThemeWithProfile(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeWithProfile creates a theme for an explicit color profile.
// termenv.Ascii gives an uncolored theme that still distinguishes states.
func NewThemeWithProfile(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

// HasColor reports whether the terminal renders any color.
func (t *Theme) HasColor() bool {
	return t.ColorProfile != termenv.Ascii
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	pill := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	t.HealthChecking = pill.Foreground(TextInverse).Background(Amber)
	t.HealthOnline = pill.Foreground(TextInverse).Background(Emerald)
	t.HealthDown = pill.Foreground(TextInverse).Background(Rose)

	t.ModeActive = lipgloss.NewStyle().Bold(true).Foreground(Cyan).Underline(true)
	t.ModeInactive = lipgloss.NewStyle().Foreground(TextSecondary)
	t.ModeDisabled = lipgloss.NewStyle().Foreground(TextMuted).Strikethrough(true)

	t.UserMessage = lipgloss.NewStyle().
		Foreground(UserFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBorder).
		PaddingLeft(1)
	t.AssistantMessage = lipgloss.NewStyle().
		Foreground(AssistantFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBorder).
		PaddingLeft(1)
	t.MessageMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.ImageLink = lipgloss.NewStyle().
		Foreground(Purple).
		Underline(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.StatusInfo = lipgloss.NewStyle().
		Foreground(Emerald)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Empty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	if !t.HasColor() {
		t.HealthChecking = lipgloss.NewStyle().Padding(0, 1)
		t.HealthOnline = lipgloss.NewStyle().Bold(true).Padding(0, 1)
		t.HealthDown = lipgloss.NewStyle().Bold(true).Underline(true).Padding(0, 1)
	}
}
