// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/dispatch"
	"github.com/jeranaias/nexus-tui/internal/gateway"
	"github.com/jeranaias/nexus-tui/internal/logging"
	"github.com/jeranaias/nexus-tui/internal/session"
	"github.com/jeranaias/nexus-tui/internal/storage"
)

// catalogTimeout bounds the catalog fetch one-shot commands make.
const catalogTimeout = 30 * time.Second

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP
// =============================================================================

// App carries the I/O and factories the commands use, so tests can swap them.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// HTTPClient overrides the gateway transport (nil = http.DefaultClient)
	HTTPClient *http.Client

	// IsTerminal reports whether the TUI can take over the terminal
	IsTerminal func() bool

	// RunProgram runs the TUI until it exits
	RunProgram func(p *tea.Program) error

	opts globalOptions
}

type globalOptions struct {
	configPath string
	url        string
	logLevel   string
	verbose    bool
	json       bool
}

// DefaultApp returns an App wired to the real terminal.
func DefaultApp() *App {
	return &App{
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		IsTerminal: func() bool { return IsTTY() && IsStdoutTTY() },
		RunProgram: func(p *tea.Program) error {
			_, err := p.Run()
			return err
		},
	}
}

// Main runs the command line with os.Args and returns the exit code.
func Main() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return DefaultApp().Run(ctx, os.Args[1:])
}

// Run executes args and returns the exit code. Errors are reported on Err,
// or as a JSON envelope on Out under --json.
func (a *App) Run(ctx context.Context, args []string) int {
	root := NewRootCmd(a)
	root.SetArgs(args)
	if a.In != nil {
		root.SetIn(a.In)
	}
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	executed, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if a.opts.json {
		_ = NewJSONErrorResponse(commandName(executed), describe(err)).Write(a.Out)
	} else {
		fmt.Fprintf(a.Err, "%s %s\n", RenderStatus(StatusFail), describe(err))
	}
	return 1
}

// NewRootCmd builds the command tree.
func NewRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nexus",
		Short: "Terminal client for the AI Nexus gateway",
		Long: `nexus is a terminal client for an AI Nexus gateway.

Run it without a command to open the chat UI. Chat and image generation keep
separate histories; Tab switches between them.

Examples:
  nexus
  nexus ask "explain goroutines in one paragraph"
  nexus imagine -m flux "a lighthouse at dusk"
  nexus status --watch
  nexus sessions list --search go`,
		Args:          cobra.NoArgs,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			lipgloss.SetColorProfile(ColorProfile())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, app)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&app.opts.configPath, "config", "c", "", "config file (default ~/.nexus/config.toml)")
	pf.StringVar(&app.opts.url, "url", "", "gateway URL (overrides config and NEXUS_URL)")
	pf.StringVar(&app.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&app.opts.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&app.opts.json, "json", false, "print JSON output")

	cmd.AddCommand(
		newAskCmd(app),
		newImagineCmd(app),
		newModelsCmd(app),
		newProvidersCmd(app),
		newStatusCmd(app),
		newDoctorCmd(app),
		newSessionsCmd(app),
		newConfigCmd(app),
	)
	return cmd
}

// =============================================================================
// WIRING
// =============================================================================

// env is everything a command needs, built from the loaded configuration.
type env struct {
	cfg     *config.Config
	cfgErr  error // non-fatal load problem; cfg holds the defaults
	logger  *slog.Logger
	client  *gateway.Client
	archive *storage.Archive // nil when disabled or unavailable
	opened  bool

	closers []func() error
}

// loadConfig loads the config file and applies the command-line overrides.
// A default config file that cannot be read is reported through warn and
// replaced by the defaults; an explicit --config file must load.
func (a *App) loadConfig(warn func(error)) (*config.Config, error) {
	var cfg *config.Config
	if a.opts.configPath != "" {
		c, err := config.LoadFromPath(a.opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		c, err := config.Load()
		if c == nil {
			return nil, err
		}
		if err != nil && warn != nil {
			warn(err)
		}
		cfg = c
	}

	if err := a.applyOverrides(cfg); err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// applyOverrides applies the global flags to cfg and revalidates it.
func (a *App) applyOverrides(cfg *config.Config) error {
	if a.opts.url != "" {
		cfg.Gateway.URL = a.opts.url
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	cfg.SetDefaults()
	return cfg.Validate()
}

// setup loads configuration and builds the logger and gateway client. The
// TUI logs to a file so the screen stays clean; other commands log warnings
// to stderr unless a log file is configured.
func (a *App) setup(tui bool) (*env, error) {
	e := &env{}
	cfg, err := a.loadConfig(func(err error) {
		e.cfgErr = err
		if !tui {
			fmt.Fprintf(a.Err, "%s %v (using defaults)\n", RenderStatus(StatusWarn), err)
		}
	})
	if err != nil {
		return nil, err
	}
	e.cfg = cfg

	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Path: cfg.Log.File}
	if tui && opts.Path == "" {
		if p, err := config.DefaultLogPath(); err == nil {
			opts.Path = p
		}
	}
	if opts.Path == "" {
		switch {
		case a.opts.logLevel != "":
		case a.opts.verbose:
			opts.Level = "debug"
		default:
			opts.Level = "warn"
		}
	}
	logger, closeLog, err := logging.Open(opts, a.Err)
	if err != nil {
		// The TUI owns the screen, so it runs without a log rather than on stderr.
		logger, closeLog = logging.Discard(), func() error { return nil }
		if !tui {
			fmt.Fprintf(a.Err, "%s %v\n", RenderStatus(StatusWarn), err)
			logger = logging.New(a.Err, "warn", cfg.Log.Format)
		}
	}
	e.logger = logger
	e.closers = append(e.closers, closeLog)

	e.client = gateway.NewClient(cfg.GatewayConfig()).WithLogger(logger)
	if a.HTTPClient != nil {
		e.client.WithHTTPClient(a.HTTPClient)
	}
	return e, nil
}

// openArchive opens the local session archive when enabled. Failures are
// logged and leave the archive off.
func (e *env) openArchive() *storage.Archive {
	if e.opened || !e.cfg.Storage.Archive {
		return e.archive
	}
	e.opened = true
	path := e.cfg.Storage.ArchivePath
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			e.logger.Warn("archive disabled", "err", err)
			return nil
		}
		path = p
	}
	a, err := storage.Open(path)
	if err != nil {
		e.logger.Warn("archive disabled", "path", path, "err", err)
		return nil
	}
	e.archive = a
	e.closers = append(e.closers, a.Close)
	return a
}

// registry fetches the catalog. A failed fetch still returns a usable
// registry; requests then go out without local catalog checks.
func (e *env) registry(ctx context.Context) (*catalog.Registry, error) {
	ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()
	reg := catalog.NewRegistry().WithLogger(e.logger)
	return reg, reg.Refresh(ctx, e.client)
}

func (e *env) dispatcher(reg *catalog.Registry) *dispatch.Dispatcher {
	return dispatch.New(e.client, reg, conversation.NewStore()).
		WithTimeouts(e.cfg.Timeouts.Chat.Duration, e.cfg.Timeouts.Image.Duration).
		WithLogger(e.logger)
}

func (e *env) saver() *session.Saver {
	s := session.NewSaver(e.client).
		WithCallTimeout(e.cfg.SessionTimeout()).
		WithLogger(e.logger)
	if a := e.openArchive(); a != nil {
		s.WithArchive(a)
	}
	return s
}

func (e *env) history() *session.History {
	h := session.NewHistory(e.client).
		WithCallTimeout(e.cfg.SessionTimeout()).
		WithLogger(e.logger)
	if a := e.openArchive(); a != nil {
		h.WithArchive(a)
	}
	return h
}

// Close releases the archive and log file in reverse order.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func (a *App) printJSON(cmd *cobra.Command, data any) error {
	return NewJSONResponse(commandName(cmd), data).Write(a.Out)
}

// commandName returns the command path without the binary name.
func commandName(cmd *cobra.Command) string {
	if cmd == nil {
		return ""
	}
	path := cmd.CommandPath()
	if i := strings.IndexByte(path, ' '); i >= 0 {
		return path[i+1:]
	}
	return path
}

// describe returns the user-facing text for err.
func describe(err error) string {
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		return err.Error()
	}
	if apierr.ForcesChatMode(err) {
		// One-shot commands have no mode to switch.
		return "Image generation is not supported by the server."
	}
	return apierr.UserMessage(err)
}
