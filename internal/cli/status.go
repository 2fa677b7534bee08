// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/nexus-tui/internal/health"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// errGatewayDown makes status exit non-zero when the probe fails.
var errGatewayDown = errors.New("gateway is down")

type statusOptions struct {
	watch    bool
	interval time.Duration
}

// statusResult is the --json payload of status.
type statusResult struct {
	URL         string    `json:"url"`
	State       string    `json:"state"`
	LastChecked time.Time `json:"last_checked"`
}

func newStatusCmd(app *App) *cobra.Command {
	var opts statusOptions
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"s"},
		Short:   "Check whether the gateway is reachable",
		Long: `Probe the gateway the same way the UI does: one probe, and one retry
after a short delay before reporting it down.

With --watch the check repeats on the health interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, app, &opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "keep checking until interrupted")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "time between checks with --watch (default from config)")
	return cmd
}

func runStatus(cmd *cobra.Command, app *App, opts *statusOptions) error {
	ctx := cmd.Context()

	e, err := app.setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	mcfg := e.cfg.MonitorConfig()
	if opts.interval > 0 {
		mcfg.Interval = opts.interval
	}
	mon := health.NewMonitor(e.client, mcfg).WithLogger(e.logger)
	theme := styles.NewThemeWithProfile(ColorProfile(), true)

	if !opts.watch {
		st, err := mon.RunCycle(ctx)
		if err != nil {
			return err
		}
		if app.opts.json {
			return app.printJSON(cmd, toStatusResult(e.client.BaseURL(), st))
		}
		fmt.Fprintln(app.Out, RenderLabel("Gateway", e.client.BaseURL()))
		fmt.Fprintln(app.Out, RenderLabel("Health", components.HealthPill(theme, st)))
		fmt.Fprintln(app.Out, RenderLabel("Checked", st.LastChecked.Format(time.TimeOnly)))
		if st.State == health.StateDown {
			return errGatewayDown
		}
		return nil
	}

	updates := make(chan health.Status, 8)
	mon.WithNotify(func(st health.Status) {
		select {
		case updates <- st:
		default:
		}
	})
	mon.Start(ctx)
	defer mon.Stop()

	if !app.opts.json {
		fmt.Fprintf(app.Out, "Watching %s every %s (Ctrl+C to stop)\n", e.client.BaseURL(), mon.Config().Interval)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-updates:
			if st.State == health.StateChecking {
				continue
			}
			if app.opts.json {
				if err := app.printJSON(cmd, toStatusResult(e.client.BaseURL(), st)); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(app.Out, "%s  %s\n", dimStyle.Render(st.LastChecked.Format(time.TimeOnly)), components.HealthPill(theme, st))
		}
	}
}

func toStatusResult(url string, st health.Status) statusResult {
	return statusResult{URL: url, State: st.State.String(), LastChecked: st.LastChecked}
}
