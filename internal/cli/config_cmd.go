// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/nexus-tui/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, locate, initialise or validate the config file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := app.loadConfig(func(err error) {
					fmt.Fprintf(app.Err, "%s %v (using defaults)\n", RenderStatus(StatusWarn), err)
				})
				if err != nil {
					return err
				}
				if app.opts.json {
					return app.printJSON(cmd, cfg)
				}
				fmt.Fprint(app.Out, cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := app.configFile()
				if path == "" {
					return errors.New("could not determine the config path")
				}
				if app.opts.json {
					return app.printJSON(cmd, map[string]any{"path": path, "exists": fileExists(path)})
				}
				fmt.Fprintln(app.Out, path)
				return nil
			},
		},
		newConfigInitCmd(app),
		&cobra.Command{
			Use:   "validate",
			Short: "Check the config file for errors",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := app.configFile()
				if !fileExists(path) {
					return fmt.Errorf("no config file at %s", path)
				}
				if _, err := config.LoadFromPath(path); err != nil {
					return err
				}
				if app.opts.json {
					return app.printJSON(cmd, map[string]any{"path": path, "valid": true})
				}
				fmt.Fprintf(app.Out, "%s %s is valid\n", RenderStatus(StatusOK), path)
				return nil
			},
		},
	)
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := app.configFile()
			if path == "" {
				return errors.New("could not determine the config path")
			}
			if err := config.Init(path, force); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return fmt.Errorf("%w (use --force to overwrite)", err)
				}
				return err
			}
			if app.opts.json {
				return app.printJSON(cmd, map[string]string{"path": path})
			}
			fmt.Fprintf(app.Out, "%s wrote %s\n", RenderStatus(StatusOK), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
