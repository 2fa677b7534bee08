// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/dispatch"
	"github.com/jeranaias/nexus-tui/internal/health"
	"github.com/jeranaias/nexus-tui/internal/session"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps wires the model to the rest of the client.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Registry   *catalog.Registry
	Selector   *catalog.Selector
	Catalog    catalog.Source
	Saver      *session.Saver
	Monitor    *health.Monitor // optional
	Config     *config.Config
	Theme      *styles.Theme
	Logger     *slog.Logger

	// CopyText writes to the system clipboard (default: clipboard.WriteAll)
	CopyText func(string) error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the client.
type Model struct {
	deps  Deps
	store *conversation.Store
	keys  KeyMap
	theme *styles.Theme

	ctx    context.Context
	cancel context.CancelFunc

	// Dimensions
	width  int
	height int

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Request state. busy is set from submission until the result arrives.
	busy      bool
	busyLabel string

	// Status line
	status      string
	statusIsErr bool

	health   health.Status
	healthCh chan health.Status

	chatParams  dispatch.ChatConfig
	imageParams dispatch.ImageConfig
}

// New creates the model. The monitor, if any, is given a notify hook that
// feeds the model; start it separately.
func New(deps Deps) Model {
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.CopyText == nil {
		deps.CopyText = clipboard.WriteAll
	}
	if deps.Config == nil {
		deps.Config = config.Default()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 8192
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = deps.Theme.Spinner

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		deps:        deps,
		store:       deps.Dispatcher.Store(),
		keys:        DefaultKeyMap(),
		theme:       deps.Theme,
		ctx:         ctx,
		cancel:      cancel,
		viewport:    viewport.New(80, 20),
		input:       ti,
		spinner:     sp,
		health:      health.Status{State: health.StateChecking},
		healthCh:    make(chan health.Status, 8),
		chatParams:  deps.Config.ChatParams(),
		imageParams: deps.Config.ImageParams(),
	}

	if deps.Monitor != nil {
		ch := m.healthCh
		deps.Monitor.WithNotify(func(st health.Status) {
			select {
			case ch <- st:
			default:
			}
		})
		m.health = deps.Monitor.Status()
	}

	m.store.SetActiveMode(deps.Config.StartMode())
	m.updatePlaceholder()
	m.refreshViewport()
	return m
}

// Init starts the spinner, the catalog load and the health subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.loadCatalog(),
		m.waitForHealth(),
	)
}

// Busy reports whether a request is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// Status returns the current status line and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusIsErr
}

// ImageModel returns the image model new image requests use.
func (m Model) ImageModel() string {
	return m.imageParams.Model
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadCatalog() tea.Cmd {
	reg, src, ctx := m.deps.Registry, m.deps.Catalog, m.ctx
	return func() tea.Msg {
		return CatalogLoadedMsg{Err: reg.Refresh(ctx, src)}
	}
}

func (m Model) waitForHealth() tea.Cmd {
	ch := m.healthCh
	return func() tea.Msg {
		return HealthMsg{Status: <-ch}
	}
}

// recheckHealth asks the monitor for an immediate cycle. The notify hook
// delivers the result.
func (m Model) recheckHealth() tea.Cmd {
	mon, logger := m.deps.Monitor, m.deps.Logger
	if mon == nil {
		return nil
	}
	return func() tea.Msg {
		if !mon.Trigger() {
			logger.Debug("health recheck skipped, monitor not running")
		}
		return nil
	}
}

func (m Model) sendChat(text string) tea.Cmd {
	d, ctx, params := m.deps.Dispatcher, m.ctx, m.chatParams
	sel := m.deps.Selector.Resolve()
	return func() tea.Msg {
		reply, err := d.SendChat(ctx, text, sel, params)
		return ChatDoneMsg{Reply: reply, Err: err}
	}
}

func (m Model) generateImage(prompt string) tea.Cmd {
	d, ctx, params := m.deps.Dispatcher, m.ctx, m.imageParams
	return func() tea.Msg {
		reply, err := d.GenerateImage(ctx, prompt, params)
		return ImageDoneMsg{Reply: reply, Err: err}
	}
}

func (m Model) save() tea.Cmd {
	saver, ctx := m.deps.Saver, m.ctx
	// Sessions are always built from the chat history, whichever mode is shown.
	msgs := m.store.Current(conversation.ModeChat)
	sel := m.deps.Selector.Current()
	return func() tea.Msg {
		res, err := saver.Save(ctx, msgs, "", sel)
		return SaveDoneMsg{Result: res, Err: err}
	}
}

func (m Model) copyText(text string) tea.Cmd {
	write := m.deps.CopyText
	return func() tea.Msg {
		return CopyDoneMsg{Err: write(text)}
	}
}
