// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/nexus-tui/internal/export"
	"github.com/jeranaias/nexus-tui/internal/gateway"
	"github.com/jeranaias/nexus-tui/internal/session"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// Column widths for the session table.
const (
	idWidth    = 12
	titleWidth = 40
	modelWidth = 28
)

// sessionsResult is the --json payload of sessions list.
type sessionsResult struct {
	Source   string            `json:"source"`
	Sessions []gateway.Session `json:"sessions"`
	Models   []string          `json:"models"`
}

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Browse saved sessions",
		Long: `Browse the sessions saved on the gateway.

Sessions you save or open are also kept in a local archive, which is used
when the gateway cannot be reached.`,
	}
	cmd.AddCommand(
		newSessionsListCmd(app),
		newSessionsShowCmd(app),
		newSessionsDeleteCmd(app),
		newSessionsArchiveCmd(app),
		newSessionsExportCmd(app),
	)
	return cmd
}

// =============================================================================
// LIST
// =============================================================================

func newSessionsListCmd(app *App) *cobra.Command {
	var search, model string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, newest first",
		Example: `  nexus sessions list --search golang
  nexus sessions list --model microsoft/phi-4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.setup(false)
			if err != nil {
				return err
			}
			defer e.Close()

			all, src, err := e.history().List(cmd.Context())
			if err != nil {
				return err
			}
			shown := session.Filter(all, search, model)

			if app.opts.json {
				return app.printJSON(cmd, sessionsResult{Source: src.String(), Sessions: shown, Models: session.Models(all)})
			}
			if src == session.FromArchive {
				fmt.Fprintln(app.Err, warningStyle.Render("Gateway unreachable, showing archived sessions"))
			}
			if len(shown) == 0 {
				fmt.Fprintln(app.Out, dimStyle.Render("No sessions found"))
				return nil
			}
			fmt.Fprintln(app.Out, sectionStyle.Render(fmt.Sprintf("%s  %s  %s  %s",
				util.PadRight("ID", idWidth), util.PadRight("TITLE", titleWidth), util.PadRight("MODEL", modelWidth), "UPDATED")))
			for _, s := range shown {
				fmt.Fprintf(app.Out, "%s  %s  %s  %s\n",
					util.PadRight(util.Truncate(s.ID, idWidth), idWidth),
					util.PadRight(util.Truncate(util.OneLine(s.Title), titleWidth), titleWidth),
					util.PadRight(util.Truncate(s.Model, modelWidth), modelWidth),
					dimStyle.Render(formatWhen(s.UpdatedAt.Time)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only sessions whose title contains this text")
	cmd.Flags().StringVarP(&model, "model", "m", session.AllModels, "only sessions using this model")
	return cmd
}

// =============================================================================
// SHOW
// =============================================================================

func newSessionsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.setup(false)
			if err != nil {
				return err
			}
			defer e.Close()

			sess, src, err := e.history().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if app.opts.json {
				return app.printJSON(cmd, sess)
			}
			if src == session.FromArchive {
				fmt.Fprintln(app.Err, warningStyle.Render("Gateway unreachable, showing the archived copy"))
			}

			fmt.Fprintln(app.Out, titleStyle.Render(sess.Title))
			fmt.Fprintln(app.Out, RenderLabel("Session", sess.ID))
			fmt.Fprintln(app.Out, RenderLabel("Model", sess.Model+" via "+shortProvider(sess.Provider)))
			fmt.Fprintln(app.Out, RenderLabel("Updated", formatWhen(sess.UpdatedAt.Time)))
			for _, m := range sess.Messages {
				fmt.Fprintln(app.Out)
				fmt.Fprintln(app.Out, sectionStyle.Render(roleLabel(m.Role)))
				fmt.Fprintln(app.Out, m.Content)
			}
			return nil
		},
	}
}

// =============================================================================
// DELETE
// =============================================================================

func newSessionsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session from the gateway and the archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.setup(false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.history().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			if app.opts.json {
				return app.printJSON(cmd, map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(app.Out, "%s deleted session %s\n", RenderStatus(StatusOK), args[0])
			return nil
		},
	}
}

// =============================================================================
// ARCHIVE
// =============================================================================

// archiveWorkers bounds concurrent session fetches during archive.
const archiveWorkers = 4

// archiveResult is the --json payload of sessions archive.
type archiveResult struct {
	Archived int      `json:"archived"`
	Failed   []string `json:"failed,omitempty"`
}

func newSessionsArchiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Copy every gateway session into the local archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := app.setup(false)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.openArchive() == nil {
				return errors.New("the local archive is disabled or unavailable")
			}

			h := e.history()
			all, src, err := h.List(ctx)
			if err != nil {
				return err
			}
			if src == session.FromArchive {
				return errors.New("gateway unreachable, nothing to archive")
			}

			// Get mirrors each session, with its messages, into the archive.
			var (
				mu  sync.Mutex
				res archiveResult
			)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(archiveWorkers)
			for _, s := range all {
				g.Go(func() error {
					_, _, err := h.Get(gctx, s.ID)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						e.logger.Warn("session not archived", "session", s.ID, "err", err)
						res.Failed = append(res.Failed, s.ID)
						return nil
					}
					res.Archived++
					return nil
				})
			}
			_ = g.Wait()
			slices.Sort(res.Failed)

			if app.opts.json {
				return app.printJSON(cmd, res)
			}
			fmt.Fprintf(app.Out, "%s archived %d of %d sessions\n", RenderStatus(archiveStatus(res)), res.Archived, len(all))
			return nil
		},
	}
}

func archiveStatus(res archiveResult) Status {
	if len(res.Failed) > 0 {
		return StatusWarn
	}
	return StatusOK
}

// =============================================================================
// EXPORT
// =============================================================================

// exportResult is the --json payload of sessions export.
type exportResult struct {
	Session string `json:"session"`
	Path    string `json:"path"`
	Format  string `json:"format"`
}

func newSessionsExportCmd(app *App) *cobra.Command {
	var (
		format, outDir string
		stdout, noMeta bool
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a session to a Markdown or JSON file",
		Example: `  nexus sessions export 3f2a --format md --out ~/notes
  nexus sessions export 3f2a --format json --stdout > session.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = outDir
			opts.IncludeMetadata = !noMeta
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return err
			}

			e, err := app.setup(false)
			if err != nil {
				return err
			}
			defer e.Close()

			sess, src, err := e.history().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if src == session.FromArchive {
				fmt.Fprintln(app.Err, warningStyle.Render("Gateway unreachable, exporting the archived copy"))
			}

			if stdout {
				data, err := exporter.Export(sess)
				if err != nil {
					return err
				}
				_, err = app.Out.Write(data)
				return err
			}

			path, err := export.ExportToFile(sess, exporter, opts)
			if err != nil {
				return err
			}
			if app.opts.json {
				return app.printJSON(cmd, exportResult{Session: sess.ID, Path: path, Format: format})
			}
			fmt.Fprintf(app.Out, "%s exported session %s to %s\n", RenderStatus(StatusOK), sess.ID, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md or json")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the file into")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write to standard output instead of a file")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "leave out model, provider and dates")
	return cmd
}

// =============================================================================
// FORMATTING
// =============================================================================

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "Assistant"
	default:
		return role
	}
}
