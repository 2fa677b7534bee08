// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/conversation"
)

type askOptions struct {
	model       string
	provider    string
	temperature float64
	maxTokens   int
	save        bool
	title       string
}

// askResult is the --json payload of ask.
type askResult struct {
	Reply     string    `json:"reply"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
}

func newAskCmd(app *App) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one chat message and print the reply",
		Long: `Send one chat message and print the reply.

Pass "-" to read the message from stdin. With --save the exchange is stored
as a session on the gateway.`,
		Example: `  nexus ask "what is a goroutine?"
  nexus ask -m deepseek-ai/DeepSeek-V3.1 --temperature 0.2 "write a haiku"
  git diff | nexus ask -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args, app, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "chat model (default from config)")
	f.StringVarP(&opts.provider, "provider", "p", "", "provider (default: the model's first provider)")
	f.Float64VarP(&opts.temperature, "temperature", "t", 0, "sampling temperature, 0 to 2 (default from config)")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "reply length limit, 100 to 4000 (default from config)")
	f.BoolVarP(&opts.save, "save", "s", false, "save the exchange as a session")
	f.StringVar(&opts.title, "title", "", "session title for --save (default: derived from the message)")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string, app *App, opts *askOptions) error {
	ctx := cmd.Context()

	message, err := readMessage(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	e, err := app.setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	reg, err := e.registry(ctx)
	if err != nil {
		e.logger.Debug("catalog unavailable, sending without catalog checks", "err", err)
	}

	sel := e.cfg.Selection()
	if opts.model != "" {
		sel = catalog.Selection{Model: opts.model}
	}
	if opts.provider != "" {
		sel.Provider = opts.provider
	}
	// An explicit choice is sent as given so the catalog check can reject it.
	if sel.Provider == "" {
		if p, ok := reg.DefaultProvider(sel.Model); ok {
			sel.Provider = p
		}
	}

	params := e.cfg.ChatParams()
	if cmd.Flags().Changed("temperature") {
		params.Temperature = opts.temperature
	}
	if cmd.Flags().Changed("max-tokens") {
		params.MaxTokens = opts.maxTokens
	}

	d := e.dispatcher(reg)
	reply, err := d.SendChat(ctx, message, sel, params)
	if err != nil {
		return err
	}

	result := askResult{
		Reply:     reply.Content,
		Model:     reply.Model,
		Provider:  reply.Provider,
		Timestamp: reply.Timestamp,
	}

	// A failed save still prints the reply; the save error is reported after it.
	var saveErr error
	if opts.save {
		res, err := e.saver().Save(ctx, d.Store().Current(conversation.ModeChat), opts.title, sel)
		if err != nil {
			saveErr = err
		} else {
			result.SessionID = res.SessionID
		}
	}

	if app.opts.json {
		if err := app.printJSON(cmd, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(app.Out, reply.Content)
		fmt.Fprintln(app.Err, dimStyle.Render(fmt.Sprintf("%s via %s", result.Model, result.Provider)))
		if result.SessionID != "" {
			fmt.Fprintf(app.Err, "%s saved session %s\n", RenderStatus(StatusOK), result.SessionID)
		}
	}
	if saveErr != nil {
		fmt.Fprintf(app.Err, "%s %s\n", RenderStatus(StatusWarn), describe(saveErr))
	}
	return nil
}

// readMessage joins args, or reads stdin when the only argument is "-".
func readMessage(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
