// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// modelsResult is the --json payload of models.
type modelsResult struct {
	Chat            bool                `json:"chat"`
	ImageGeneration bool                `json:"image_generation"`
	Models          map[string][]string `json:"models"`
	ImageModels     []string            `json:"image_models"`
}

func newModelsCmd(app *App) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"m"},
		Short:   "List chat models with their providers, and image models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModels(cmd, app, filter)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show chat models containing this text")
	return cmd
}

func runModels(cmd *cobra.Command, app *App, filter string) error {
	e, err := app.setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	reg, err := e.registry(cmd.Context())
	if err != nil {
		return err
	}

	snap := reg.Snapshot()
	caps := reg.Capabilities()
	needle := strings.ToLower(filter)
	var names []string
	for _, m := range reg.ChatModels() {
		if needle == "" || strings.Contains(strings.ToLower(m), needle) {
			names = append(names, m)
		}
	}

	if app.opts.json {
		models := make(map[string][]string, len(names))
		for _, m := range names {
			models[m] = snap.Models[m]
		}
		return app.printJSON(cmd, modelsResult{
			Chat:            caps.Chat,
			ImageGeneration: caps.ImageGeneration,
			Models:          models,
			ImageModels:     snap.ImageModels,
		})
	}

	width := 0
	for _, m := range names {
		width = max(width, util.Width(m))
	}

	fmt.Fprintln(app.Out, titleStyle.Render(fmt.Sprintf("Chat models (%d)", len(names))))
	for _, m := range names {
		fmt.Fprintf(app.Out, "  %s  %s\n", util.PadRight(m, width), dimStyle.Render(strings.Join(snap.Models[m], ", ")))
	}

	fmt.Fprintln(app.Out)
	fmt.Fprintln(app.Out, titleStyle.Render(fmt.Sprintf("Image models (%d)", len(snap.ImageModels))))
	if !reg.ImageEnabled() {
		fmt.Fprintln(app.Out, "  "+warningStyle.Render("image generation is disabled on this server"))
	}
	for _, m := range snap.ImageModels {
		fmt.Fprintln(app.Out, "  "+m)
	}
	return nil
}

func newProvidersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the providers the gateway routes to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProviders(cmd, app)
		},
	}
}

func runProviders(cmd *cobra.Command, app *App) error {
	e, err := app.setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
	defer cancel()
	resp, err := e.client.Providers(ctx)
	if err != nil {
		return err
	}

	if app.opts.json {
		return app.printJSON(cmd, resp)
	}

	fmt.Fprintln(app.Out, titleStyle.Render(fmt.Sprintf("Providers (%d)", len(resp.Providers))))
	for _, p := range resp.Providers {
		fmt.Fprintf(app.Out, "  %s\n", shortProvider(p))
	}
	return nil
}

// shortProvider drops the package prefix from names like g4f.Provider.DeepInfra.
func shortProvider(p string) string {
	return strings.TrimPrefix(p, "g4f.Provider.")
}

// providerLabel renders sel's provider for display.
func providerLabel(sel catalog.Selection) string {
	if sel.Provider == "" {
		return "default provider"
	}
	return shortProvider(sel.Provider)
}
