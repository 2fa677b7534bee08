// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestNewThemeWithProfile(t *testing.T) {
	color := NewThemeWithProfile(termenv.TrueColor, true)
	assert.True(t, color.HasColor())
	assert.True(t, color.IsDark)

	plain := NewThemeWithProfile(termenv.Ascii, false)
	assert.False(t, plain.HasColor())
	assert.True(t, plain.HealthDown.GetUnderline(), "down stays distinguishable without color")
}

func TestHealthPillsRenderLabel(t *testing.T) {
	theme := NewThemeWithProfile(termenv.Ascii, true)
	assert.Contains(t, theme.HealthOnline.Render("online"), "online")
	assert.Contains(t, theme.HealthChecking.Render("checking"), "checking")
}
