// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type imagineOptions struct {
	model   string
	width   int
	height  int
	quality string
	style   string
}

// imagineResult is the --json payload of imagine.
type imagineResult struct {
	ImageURL  string    `json:"image_url"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider,omitempty"`
	Prompt    string    `json:"prompt"`
	Timestamp time.Time `json:"timestamp"`
}

func newImagineCmd(app *App) *cobra.Command {
	var opts imagineOptions
	cmd := &cobra.Command{
		Use:   "imagine <prompt>",
		Short: "Generate an image and print its URL",
		Example: `  nexus imagine "a lighthouse at dusk"
  nexus imagine -m dall-e-3 --width 1024 --height 768 --quality hd "city skyline"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImagine(cmd, args, app, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "image model (default from config)")
	f.IntVar(&opts.width, "width", 0, "width in pixels, 256 to 2048 (default from config)")
	f.IntVar(&opts.height, "height", 0, "height in pixels, 256 to 2048 (default from config)")
	f.StringVarP(&opts.quality, "quality", "q", "", "standard or hd (default from config)")
	f.StringVar(&opts.style, "style", "", "vivid or natural (default from config)")
	return cmd
}

func runImagine(cmd *cobra.Command, args []string, app *App, opts *imagineOptions) error {
	ctx := cmd.Context()

	prompt, err := readMessage(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	e, err := app.setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	// Image requests are checked against the catalog, so it must load.
	reg, err := e.registry(ctx)
	if err != nil {
		return err
	}

	params := e.cfg.ImageParams()
	switch {
	case opts.model != "":
		params.Model = opts.model
	case !reg.HasImageModel(params.Model):
		if models := reg.ImageModels(); len(models) > 0 {
			e.logger.Debug("configured image model not offered, using the first", "configured", params.Model, "model", models[0])
			params.Model = models[0]
		}
	}
	if cmd.Flags().Changed("width") {
		params.Width = opts.width
	}
	if cmd.Flags().Changed("height") {
		params.Height = opts.height
	}
	if opts.quality != "" {
		params.Quality = opts.quality
	}
	if opts.style != "" {
		params.Style = opts.style
	}

	reply, err := e.dispatcher(reg).GenerateImage(ctx, prompt, params)
	if err != nil {
		return err
	}

	result := imagineResult{
		ImageURL:  reply.ImageURL,
		Model:     reply.Model,
		Provider:  reply.Provider,
		Prompt:    prompt,
		Timestamp: reply.Timestamp,
	}
	if app.opts.json {
		return app.printJSON(cmd, result)
	}

	fmt.Fprintln(app.Out, reply.ImageURL)
	fmt.Fprintln(app.Err, dimStyle.Render(fmt.Sprintf("%s  %dx%d %s %s", result.Model, params.Width, params.Height, params.Quality, params.Style)))
	return nil
}
