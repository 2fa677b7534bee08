// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/gateway"
)

// Default time budgets. Image generation is much slower than chat.
const (
	DefaultChatTimeout  = 65 * time.Second
	DefaultImageTimeout = 125 * time.Second
)

// Backend is the part of the gateway the dispatcher calls.
type Backend interface {
	Chat(ctx context.Context, req *gateway.ChatRequest) (*gateway.ChatResponse, error)
	GenerateImage(ctx context.Context, req *gateway.ImageRequest) (*gateway.ImageResponse, error)
}

// Dispatcher turns user input into gateway requests.
type Dispatcher struct {
	backend      Backend
	registry     *catalog.Registry
	store        *conversation.Store
	chatTimeout  time.Duration
	imageTimeout time.Duration
	logger       *slog.Logger
}

// New creates a dispatcher with the default budgets.
func New(backend Backend, registry *catalog.Registry, store *conversation.Store) *Dispatcher {
	return &Dispatcher{
		backend:      backend,
		registry:     registry,
		store:        store,
		chatTimeout:  DefaultChatTimeout,
		imageTimeout: DefaultImageTimeout,
		logger:       slog.Default(),
	}
}

// WithTimeouts overrides the chat and image budgets. Zero keeps the current value.
func (d *Dispatcher) WithTimeouts(chat, image time.Duration) *Dispatcher {
	if chat > 0 {
		d.chatTimeout = chat
	}
	if image > 0 {
		d.imageTimeout = image
	}
	return d
}

// WithLogger sets the dispatcher logger.
func (d *Dispatcher) WithLogger(l *slog.Logger) *Dispatcher {
	if l != nil {
		d.logger = l
	}
	return d
}

// Store returns the conversation store the dispatcher writes to.
func (d *Dispatcher) Store() *conversation.Store {
	return d.store
}

// =============================================================================
// CHAT
// =============================================================================

// SendChat appends content as a user message to the chat sequence, sends the
// whole chat history, and appends the reply attributed to the model and
// provider the gateway reports.
//
// Precondition failures return KindInvalidRequest and append nothing. A
// failed request leaves the user message in place.
func (d *Dispatcher) SendChat(ctx context.Context, content string, sel catalog.Selection, cfg ChatConfig) (conversation.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return conversation.Message{}, apierr.Invalid(apierr.OpChat, "message is empty")
	}
	if err := cfg.Validate(); err != nil {
		return conversation.Message{}, err
	}
	if !d.registry.Capabilities().Chat {
		return conversation.Message{}, apierr.Invalid(apierr.OpChat, "chat is disabled on this server")
	}
	if d.registry.Loaded() {
		if err := d.registry.CheckSelection(sel.Model, sel.Provider); err != nil {
			return conversation.Message{}, err
		}
	}

	d.store.Append(conversation.ModeChat, conversation.NewUserMessage(content))

	history := d.store.Current(conversation.ModeChat)
	req := &gateway.ChatRequest{
		Messages:    toWire(history),
		Model:       sel.Model,
		Provider:    sel.Provider,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	ctx, cancel := context.WithTimeout(ctx, d.chatTimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.backend.Chat(ctx, req)
	if err != nil {
		err = apierr.Classify(apierr.OpChat, err)
		d.logger.Warn("chat request failed", "model", sel.Model, "provider", sel.Provider,
			"duration", time.Since(start), "err", err)
		return conversation.Message{}, err
	}

	model := firstNonEmpty(resp.Model, sel.Model)
	provider := firstNonEmpty(resp.Provider, sel.Provider)
	reply := conversation.NewAssistantMessage(resp.Message, model, provider, resp.Timestamp.Time)
	d.store.Append(conversation.ModeChat, reply)

	d.logger.Info("chat reply", "model", model, "provider", provider, "duration", time.Since(start))
	return reply, nil
}

// =============================================================================
// IMAGE
// =============================================================================

// GenerateImage appends the prompt to the image sequence, requests an image,
// and appends the image-bearing reply.
//
// If the gateway declines image generation the active mode is switched to
// chat and the returned error satisfies apierr.ForcesChatMode.
func (d *Dispatcher) GenerateImage(ctx context.Context, prompt string, cfg ImageConfig) (conversation.Message, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return conversation.Message{}, apierr.Invalid(apierr.OpImage, "prompt is empty")
	}
	if !d.registry.ImageEnabled() {
		return conversation.Message{}, apierr.Invalid(apierr.OpImage, "image generation is not available")
	}
	if err := cfg.Validate(); err != nil {
		return conversation.Message{}, err
	}
	if !d.registry.HasImageModel(cfg.Model) {
		return conversation.Message{}, apierr.Invalid(apierr.OpImage, "image model %q is not in the catalog", cfg.Model)
	}

	d.store.Append(conversation.ModeImage, conversation.NewUserMessage(conversation.ImagePromptContent(prompt)))

	req := &gateway.ImageRequest{
		Prompt:  prompt,
		Model:   cfg.Model,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Quality: cfg.Quality,
		Style:   cfg.Style,
	}

	ctx, cancel := context.WithTimeout(ctx, d.imageTimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.backend.GenerateImage(ctx, req)
	if err != nil {
		err = apierr.Classify(apierr.OpImage, err)
		if apierr.ForcesChatMode(err) {
			d.store.SetActiveMode(conversation.ModeChat)
			d.logger.Warn("image generation unsupported, switched to chat", "model", cfg.Model)
		} else {
			d.logger.Warn("image request failed", "model", cfg.Model, "duration", time.Since(start), "err", err)
		}
		return conversation.Message{}, err
	}

	model := firstNonEmpty(resp.Model, cfg.Model)
	reply := conversation.NewImageMessage(resp.ImageURL, model, resp.Timestamp.Time)
	reply.Provider = resp.Provider
	d.store.Append(conversation.ModeImage, reply)

	d.logger.Info("image generated", "model", model, "duration", time.Since(start))
	return reply, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func toWire(msgs []conversation.Message) []gateway.Message {
	out := make([]gateway.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gateway.Message{Role: m.Role.String(), Content: m.Content})
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
