// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/health"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

func plainTheme() *styles.Theme {
	return styles.NewThemeWithProfile(termenv.Ascii, true)
}

func TestHealthPill(t *testing.T) {
	theme := plainTheme()
	assert.Contains(t, HealthPill(theme, health.Status{State: health.StateChecking}), "checking")
	assert.Contains(t, HealthPill(theme, health.Status{State: health.StateOnline}), "online")
	assert.Contains(t, HealthPill(theme, health.Status{State: health.StateDown}), "down")
}

func TestLastChecked(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never checked", LastChecked(health.Status{}, now))
	assert.Equal(t, "checked 1m30s ago", LastChecked(health.Status{LastChecked: now.Add(-90 * time.Second)}, now))
	assert.Equal(t, "checked just now", LastChecked(health.Status{LastChecked: now}, now))
}

func TestHeader_ShowsTargetForMode(t *testing.T) {
	theme := plainTheme()
	info := HeaderInfo{
		Health:       health.Status{State: health.StateOnline},
		Mode:         conversation.ModeChat,
		ImageEnabled: true,
		Selection:    catalog.Selection{Model: "microsoft/phi-4", Provider: "g4f.Provider.DeepInfra"},
		ImageModel:   "flux",
		Width:        120,
	}
	assert.Contains(t, Header(theme, info), "microsoft/phi-4 via g4f.Provider.DeepInfra")

	info.Mode = conversation.ModeImage
	out := Header(theme, info)
	assert.Contains(t, out, "flux")
	assert.NotContains(t, out, "phi-4")
}

func TestRenderMessage(t *testing.T) {
	theme := plainTheme()
	ts := time.Date(2025, 1, 1, 9, 30, 0, 0, time.Local)

	reply := conversation.NewAssistantMessage("Hi there", "microsoft/phi-4", "g4f.Provider.DeepInfra", ts)
	out := RenderMessage(theme, reply, 80)
	assert.Contains(t, out, "Hi there")
	assert.Contains(t, out, "microsoft/phi-4 · g4f.Provider.DeepInfra · 09:30")

	img := conversation.NewImageMessage("https://img.example/cat.png", "flux", ts)
	assert.Contains(t, RenderMessage(theme, img, 80), "https://img.example/cat.png")
}

func TestRenderConversation_Empty(t *testing.T) {
	theme := plainTheme()
	assert.Contains(t, RenderConversation(theme, nil, conversation.ModeChat, 80), "Start a conversation")
	assert.Contains(t, RenderConversation(theme, nil, conversation.ModeImage, 80), "Describe an image")
}

func TestShortcuts_FitsWidth(t *testing.T) {
	theme := plainTheme()
	bindings := []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "mode")),
		key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	}
	assert.Equal(t, "enter send  tab mode  ctrl+s save", Shortcuts(theme, bindings, 100))
	assert.Equal(t, "enter send", Shortcuts(theme, bindings, 12))
}
