// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/health"
	"github.com/jeranaias/nexus-tui/internal/ui/chat"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// errNoTerminal is returned when the UI is started without a terminal.
var errNoTerminal = errors.New("the chat UI needs an interactive terminal; run 'nexus --help' for one-shot commands")

// runTUI starts the chat UI with the health monitor and config hot reload.
func runTUI(cmd *cobra.Command, app *App) error {
	if app.IsTerminal != nil && !app.IsTerminal() {
		return errNoTerminal
	}

	e, err := app.setup(true)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reg := catalog.NewRegistry().WithLogger(e.logger)
	var mon *health.Monitor
	if e.cfg.Health.Enabled {
		mon = health.NewMonitor(e.client, e.cfg.MonitorConfig()).WithLogger(e.logger)
	}

	model := chat.New(chat.Deps{
		Dispatcher: e.dispatcher(reg),
		Registry:   reg,
		Selector:   catalog.NewSelector(reg, e.cfg.Selection()),
		Catalog:    e.client,
		Saver:      e.saver(),
		Monitor:    mon,
		Config:     e.cfg,
		Theme:      styles.NewTheme(),
		Logger:     e.logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// The model installs its notify hook in chat.New, so start afterwards.
	if mon != nil {
		mon.Start(ctx)
		defer mon.Stop()
	}

	if path := app.configFile(); fileExists(path) {
		go func() {
			err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
				if err == nil {
					err = app.applyOverrides(cfg)
				}
				p.Send(chat.ConfigReloadedMsg{Config: cfg, Err: err})
			})
			if err != nil {
				e.logger.Warn("config watch stopped", "path", path, "err", err)
			}
		}()
	}

	e.logger.Info("starting ui", "gateway", e.client.BaseURL(), "model", e.cfg.Chat.Model)
	err = app.RunProgram(p)
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
