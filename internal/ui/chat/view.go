// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nexus-tui/internal/ui/components"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// Fixed rows around the viewport: header, status, input border, input, footer.
const chromeHeight = 5

// View renders the whole screen.
func (m Model) View() string {
	mode := m.store.ActiveMode()
	header := components.Header(m.theme, components.HeaderInfo{
		Health:       m.health,
		Mode:         mode,
		ImageEnabled: m.deps.Registry.ImageEnabled(),
		Selection:    m.deps.Selector.Current(),
		ImageModel:   m.imageParams.Model,
		Width:        m.width,
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.statusLine(),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		components.Shortcuts(m.theme, m.keys.ShortHelp(), m.width),
	)
}

func (m Model) statusLine() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + m.theme.StatusBar.Render(m.busyLabel+"...")
	case m.status != "" && m.statusIsErr:
		return m.theme.StatusError.Render(util.Truncate(m.status, m.width))
	case m.status != "":
		return m.theme.StatusInfo.Render(util.Truncate(m.status, m.width))
	default:
		return m.theme.StatusBar.Render(components.LastChecked(m.health, time.Now()))
	}
}

// layout resizes the viewport and input to the window.
func (m *Model) layout() {
	m.viewport.Width = m.width
	h := m.height - chromeHeight
	if h < 3 {
		h = 3
	}
	m.viewport.Height = h
	m.input.Width = m.width - lipgloss.Width(m.input.Prompt) - 1
	m.refreshViewport()
}

// refreshViewport re-renders the active history and scrolls to the end.
func (m *Model) refreshViewport() {
	mode := m.store.ActiveMode()
	msgs := m.store.Current(mode)
	m.viewport.SetContent(components.RenderConversation(m.theme, msgs, mode, m.viewport.Width))
	m.viewport.GotoBottom()
}
