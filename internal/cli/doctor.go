// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/config"
)

// smokeTimeout bounds the whole per-model smoke test.
const smokeTimeout = 3 * time.Minute

// Check is one diagnostic result.
type Check struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// doctorResult is the --json payload of doctor.
type doctorResult struct {
	Checks   []Check `json:"checks"`
	Passed   int     `json:"passed"`
	Warnings int     `json:"warnings"`
	Failed   int     `json:"failed"`
}

type doctorOptions struct {
	smoke       bool
	smokeModels []string
	perModel    time.Duration
}

func newDoctorCmd(app *App) *cobra.Command {
	var opts doctorOptions
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and gateway connectivity",
		Long: `Check the configuration, the gateway connection, the model catalog and
the local archive.

With --smoke the gateway also sends a short prompt to each model and reports
which ones answer. This calls real providers and can take a while.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, app, &opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.smoke, "smoke", false, "smoke-test models through the gateway")
	f.StringSliceVar(&opts.smokeModels, "smoke-model", nil, "model to smoke-test (repeatable; default: the gateway's set)")
	f.DurationVar(&opts.perModel, "per-model-timeout", 0, "smoke-test budget per model (default: the gateway's)")
	return cmd
}

func runDoctor(cmd *cobra.Command, app *App, opts *doctorOptions) error {
	ctx := cmd.Context()

	e, err := app.setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	var checks []Check
	add := func(name string, s Status, format string, args ...any) {
		checks = append(checks, Check{Name: name, Status: s, Message: fmt.Sprintf(format, args...)})
	}

	// Configuration
	switch path := app.configFile(); {
	case e.cfgErr != nil:
		add("Config", StatusWarn, "using defaults: %v", e.cfgErr)
	case fileExists(path):
		add("Config", StatusOK, "loaded %s", path)
	default:
		add("Config", StatusOK, "defaults (no file at %s)", path)
	}

	// Gateway
	pingCtx, cancel := context.WithTimeout(ctx, e.cfg.Health.ProbeTimeout.Duration)
	start := time.Now()
	err = e.client.Ping(pingCtx)
	cancel()
	if err != nil {
		add("Gateway", StatusFail, "%s (%s)", describe(err), e.client.BaseURL())
		add("Catalog", StatusWarn, "skipped")
	} else {
		add("Gateway", StatusOK, "%s answered in %s", e.client.BaseURL(), time.Since(start).Round(time.Millisecond))
		checks = append(checks, catalogChecks(ctx, e)...)

		if opts.smoke {
			checks = append(checks, smokeChecks(ctx, e, opts)...)
		}
	}

	// Archive
	switch {
	case !e.cfg.Storage.Archive:
		add("Archive", StatusOK, "disabled")
	default:
		a := e.openArchive()
		if a == nil {
			add("Archive", StatusWarn, "unavailable; saved sessions will not be readable offline")
			break
		}
		sessions, err := a.List(ctx)
		if err != nil {
			add("Archive", StatusFail, "%v", err)
			break
		}
		add("Archive", StatusOK, "%d sessions archived", len(sessions))
	}

	res := doctorResult{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case StatusOK:
			res.Passed++
		case StatusWarn:
			res.Warnings++
		default:
			res.Failed++
		}
	}

	if app.opts.json {
		if err := app.printJSON(cmd, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(app.Out, titleStyle.Render("nexus doctor"))
		fmt.Fprintln(app.Out)
		for _, c := range checks {
			fmt.Fprintf(app.Out, "%-6s %s%s\n", RenderStatus(c.Status), labelStyle.Render(c.Name), c.Message)
		}
		fmt.Fprintln(app.Out)
		fmt.Fprintln(app.Out, dimStyle.Render(fmt.Sprintf("%d passed, %d warnings, %d failed", res.Passed, res.Warnings, res.Failed)))
	}

	if res.Failed > 0 {
		return fmt.Errorf("doctor found %d problem(s)", res.Failed)
	}
	return nil
}

// catalogChecks loads the catalog and checks the configured selections.
func catalogChecks(ctx context.Context, e *env) []Check {
	reg, err := e.registry(ctx)
	if err != nil {
		return []Check{{Name: "Catalog", Status: StatusFail, Message: describe(err)}}
	}

	caps := reg.Capabilities()
	checks := []Check{{
		Name:   "Catalog",
		Status: StatusOK,
		Message: fmt.Sprintf("%d chat models, %d image models (chat %s, images %s)",
			len(reg.ChatModels()), len(reg.ImageModels()), onOff(caps.Chat), onOff(caps.ImageGeneration)),
	}}

	sel := catalog.Selection{Model: e.cfg.Chat.Model, Provider: e.cfg.Chat.Provider}
	if err := reg.CheckSelection(sel.Model, sel.Provider); err != nil {
		checks = append(checks, Check{Name: "Chat model", Status: StatusWarn, Message: describe(err)})
	} else {
		sel = catalog.NewSelector(reg, sel).Resolve()
		checks = append(checks, Check{Name: "Chat model", Status: StatusOK, Message: sel.Model + " via " + providerLabel(sel)})
	}

	switch img := e.cfg.Image.Model; {
	case !reg.ImageEnabled():
		checks = append(checks, Check{Name: "Image model", Status: StatusWarn, Message: "image generation is not available"})
	case !reg.HasImageModel(img):
		checks = append(checks, Check{Name: "Image model", Status: StatusWarn,
			Message: fmt.Sprintf("%s is not offered; %s will be used", img, reg.ImageModels()[0])})
	default:
		checks = append(checks, Check{Name: "Image model", Status: StatusOK, Message: img})
	}
	return checks
}

// smokeChecks asks the gateway to try each model with a short prompt.
func smokeChecks(ctx context.Context, e *env, opts *doctorOptions) []Check {
	ctx, cancel := context.WithTimeout(ctx, smokeTimeout)
	defer cancel()

	resp, err := e.client.ModelsHealth(ctx, opts.smokeModels, opts.perModel)
	if err != nil {
		return []Check{{Name: "Smoke test", Status: StatusFail, Message: describe(err)}}
	}

	checks := make([]Check, 0, len(resp.Results)+1)
	for _, r := range resp.Results {
		if r.OK {
			checks = append(checks, Check{Name: r.Model, Status: StatusOK, Message: "answered via " + shortProvider(r.Provider)})
		} else {
			checks = append(checks, Check{Name: r.Model, Status: StatusWarn, Message: r.Error})
		}
	}
	checks = append(checks, Check{
		Name:    "Smoke test",
		Status:  StatusOK,
		Message: fmt.Sprintf("%d of %d models working", resp.CountWorking, len(resp.Results)),
	})
	return checks
}

// configFile returns the config path in effect.
func (a *App) configFile() string {
	if a.opts.configPath != "" {
		return a.opts.configPath
	}
	path, err := config.ConfigPath()
	if err != nil {
		return ""
	}
	return path
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
