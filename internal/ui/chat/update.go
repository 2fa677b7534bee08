// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/conversation"
)

// Update handles messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case HealthMsg:
		m.health = msg.Status
		return m, m.waitForHealth()

	case CatalogLoadedMsg:
		return m.handleCatalog(msg)

	case ConfigReloadedMsg:
		m.applyConfig(msg)
		return m, nil

	case ChatDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.clearStatus()
		}
		m.refreshViewport()
		return m, nil

	case ImageDoneMsg:
		m.busy = false
		if msg.Err != nil {
			// The dispatcher has already switched modes for an unsupported server.
			m.setError(msg.Err)
			m.updatePlaceholder()
		} else {
			m.clearStatus()
		}
		m.refreshViewport()
		return m, nil

	case SaveDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.setInfo(fmt.Sprintf("Saved %q (%d messages)", msg.Result.Title, msg.Result.Saved))
		}
		return m, nil

	case CopyDoneMsg:
		if msg.Err != nil {
			m.setInfoError("Copy failed: " + msg.Err.Error())
		} else {
			m.setInfo("Copied to clipboard")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		if m.deps.Monitor != nil {
			m.deps.Monitor.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.ToggleMode):
		m.toggleMode()
		return m, nil

	case key.Matches(msg, m.keys.NextModel):
		m.nextModel()
		return m, nil

	case key.Matches(msg, m.keys.NextProvider):
		if m.store.ActiveMode() == conversation.ModeChat {
			sel := m.deps.Selector.NextProvider()
			m.setInfo("Provider: " + sel.Provider)
		}
		return m, nil

	case key.Matches(msg, m.keys.Preset):
		m.applyPreset(presetIndex(msg.String()))
		return m, nil

	case key.Matches(msg, m.keys.Save):
		if m.busy {
			return m, nil
		}
		if m.store.Len(conversation.ModeChat) == 0 {
			m.setError(apierr.EmptyConversation())
			return m, nil
		}
		m.busy, m.busyLabel = true, "Saving"
		return m, m.save()

	case key.Matches(msg, m.keys.Clear):
		mode := m.store.ActiveMode()
		m.store.Clear(mode)
		m.setInfo(fmt.Sprintf("Cleared %s history", mode))
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copyLast()

	case key.Matches(msg, m.keys.Refresh):
		m.setInfo("Rechecking server...")
		return m, tea.Batch(m.recheckHealth(), m.loadCatalog())

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input in the active mode. Ignored while a request is in
// flight or when the input is blank.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if m.busy || text == "" {
		return m, nil
	}

	m.input.Reset()
	m.clearStatus()
	m.busy = true

	var cmd tea.Cmd
	if m.store.ActiveMode() == conversation.ModeImage {
		m.busyLabel = "Generating image"
		cmd = m.generateImage(text)
	} else {
		m.busyLabel = "Thinking"
		cmd = m.sendChat(text)
	}
	return m, cmd
}

func (m *Model) toggleMode() {
	if m.store.ActiveMode() == conversation.ModeImage {
		m.store.SetActiveMode(conversation.ModeChat)
	} else {
		if !m.deps.Registry.ImageEnabled() {
			m.setInfoError("Image generation is not available on this server")
			return
		}
		m.store.SetActiveMode(conversation.ModeImage)
	}
	m.clearStatus()
	m.updatePlaceholder()
	m.refreshViewport()
}

func (m *Model) nextModel() {
	if m.store.ActiveMode() == conversation.ModeImage {
		models := m.deps.Registry.ImageModels()
		if len(models) == 0 {
			return
		}
		next := models[0]
		if i := slices.Index(models, m.imageParams.Model); i >= 0 {
			next = models[(i+1)%len(models)]
		}
		m.imageParams.Model = next
		m.setInfo("Image model: " + next)
		return
	}
	sel := m.deps.Selector.NextModel()
	m.setInfo(fmt.Sprintf("Model: %s via %s", sel.Model, sel.Provider))
}

func (m *Model) applyPreset(i int) {
	presets := m.deps.Config.UI.Presets
	if i < 0 || i >= len(presets) {
		return
	}
	p := presets[i]
	if err := m.deps.Selector.SetModel(p.Model); err != nil {
		m.setError(err)
		return
	}
	if p.Provider != "" {
		// A preset provider the model no longer offers keeps the default.
		_ = m.deps.Selector.SetProvider(p.Provider)
	}
	sel := m.deps.Selector.Current()
	m.setInfo(fmt.Sprintf("%s: %s via %s", p.Name, sel.Model, sel.Provider))
}

func (m Model) copyLast() (tea.Model, tea.Cmd) {
	last, ok := m.store.Last(m.store.ActiveMode(), conversation.RoleAssistant)
	if !ok {
		m.setInfoError("Nothing to copy")
		return m, nil
	}
	text := last.Content
	if last.IsImage {
		text = last.ImageURL
	}
	return m, m.copyText(text)
}

// =============================================================================
// CATALOG
// =============================================================================

func (m Model) handleCatalog(msg CatalogLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.deps.Logger.Warn("catalog load failed", "err", msg.Err)
		m.setError(msg.Err)
	}

	reg := m.deps.Registry
	if reg.Loaded() {
		m.deps.Selector.Resolve()
		if models := reg.ImageModels(); len(models) > 0 && !reg.HasImageModel(m.imageParams.Model) {
			m.imageParams.Model = models[0]
		}
	}
	if m.store.ActiveMode() == conversation.ModeImage && !reg.ImageEnabled() {
		m.store.SetActiveMode(conversation.ModeChat)
		m.updatePlaceholder()
		m.refreshViewport()
	}
	return m, nil
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// applyConfig adopts a reloaded configuration. Request parameters and presets
// take effect at once; a changed default model is selected; the gateway URL
// and timeouts only change on restart.
func (m *Model) applyConfig(msg ConfigReloadedMsg) {
	if msg.Err != nil {
		m.deps.Logger.Warn("config reload failed", "err", msg.Err)
		m.setInfoError("Config reload failed: " + msg.Err.Error())
		return
	}
	prev, next := m.deps.Config, msg.Config
	m.deps.Config = next
	m.chatParams = next.ChatParams()

	imageModel := m.imageParams.Model
	m.imageParams = next.ImageParams()
	if next.Image.Model == prev.Image.Model || (m.deps.Registry.Loaded() && !m.deps.Registry.HasImageModel(next.Image.Model)) {
		m.imageParams.Model = imageModel
	}

	if next.Chat.Model != prev.Chat.Model || next.Chat.Provider != prev.Chat.Provider {
		if err := m.deps.Selector.SetModel(next.Chat.Model); err != nil {
			m.deps.Logger.Warn("reloaded model not in catalog", "model", next.Chat.Model, "err", err)
		} else if next.Chat.Provider != "" {
			_ = m.deps.Selector.SetProvider(next.Chat.Provider)
		}
	}

	if next.Gateway.URL != prev.Gateway.URL {
		m.setInfo("Config reloaded; restart to use the new gateway URL")
		return
	}
	m.setInfo("Config reloaded")
}

// =============================================================================
// STATUS HELPERS
// =============================================================================

func (m *Model) setError(err error) {
	m.status = apierr.UserMessage(err)
	m.statusIsErr = true
}

func (m *Model) setInfoError(s string) {
	m.status = s
	m.statusIsErr = true
}

func (m *Model) setInfo(s string) {
	m.status = s
	m.statusIsErr = false
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusIsErr = false
}

func (m *Model) updatePlaceholder() {
	if m.store.ActiveMode() == conversation.ModeImage {
		m.input.Placeholder = "Describe the image you want to generate..."
	} else {
		m.input.Placeholder = "Type a message..."
	}
}
