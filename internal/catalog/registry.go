// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/gateway"
)

// Source fetches catalog data. *gateway.Client satisfies it.
type Source interface {
	Capabilities(ctx context.Context) (*gateway.Capabilities, error)
	Models(ctx context.Context) (*gateway.ModelsResponse, error)
}

// Capabilities are the gateway feature flags.
type Capabilities struct {
	Chat            bool
	ImageGeneration bool
}

// DefaultCapabilities is assumed until the gateway says otherwise.
var DefaultCapabilities = Capabilities{Chat: true, ImageGeneration: true}

// Catalog maps each chat model to its ordered providers and lists the image
// models.
type Catalog struct {
	Models      map[string][]string
	ImageModels []string
}

// Validate checks that every model has at least one provider.
func (c Catalog) Validate() error {
	for model, providers := range c.Models {
		if len(providers) == 0 {
			return fmt.Errorf("model %q has no providers", model)
		}
	}
	return nil
}

func (c Catalog) clone() Catalog {
	out := Catalog{
		Models:      make(map[string][]string, len(c.Models)),
		ImageModels: slices.Clone(c.ImageModels),
	}
	for m, p := range c.Models {
		out.Models[m] = slices.Clone(p)
	}
	return out
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the process-wide view of capabilities and catalog. It is safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	caps    Capabilities
	catalog Catalog
	loaded  bool
	logger  *slog.Logger
}

// NewRegistry creates an empty registry with default capabilities.
func NewRegistry() *Registry {
	return &Registry{
		caps:    DefaultCapabilities,
		catalog: Catalog{Models: map[string][]string{}},
		logger:  slog.Default(),
	}
}

// WithLogger sets the registry logger.
func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	if l != nil {
		r.logger = l
	}
	return r
}

// Refresh fetches capabilities and catalog from src. Capabilities are
// best-effort: a failed fetch keeps the defaults. A failed or invalid catalog
// fetch leaves the previous catalog in place and returns the error.
func (r *Registry) Refresh(ctx context.Context, src Source) error {
	caps := DefaultCapabilities
	if fetched, err := src.Capabilities(ctx); err != nil {
		r.logger.Warn("capabilities unavailable, assuming all features enabled", "err", err)
	} else {
		caps = Capabilities{Chat: fetched.Chat, ImageGeneration: fetched.ImageGeneration}
	}

	models, err := src.Models(ctx)
	if err != nil {
		r.mu.Lock()
		r.caps = caps
		r.mu.Unlock()
		return err
	}

	next := Catalog{Models: models.Models, ImageModels: models.ImageModels}.clone()
	if err := next.Validate(); err != nil {
		r.mu.Lock()
		r.caps = caps
		r.mu.Unlock()
		return &apierr.Error{Kind: apierr.KindServer, Op: apierr.OpCatalog, Detail: err.Error()}
	}

	r.Replace(caps, next)
	r.logger.Debug("catalog refreshed", "models", len(next.Models), "image_models", len(next.ImageModels),
		"image_generation", caps.ImageGeneration)
	return nil
}

// Replace installs caps and cat wholesale.
func (r *Registry) Replace(caps Capabilities, cat Catalog) {
	cat = cat.clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = caps
	r.catalog = cat
	r.loaded = true
}

// Loaded reports whether a catalog has been installed.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Capabilities returns the current feature flags.
func (r *Registry) Capabilities() Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps
}

// Snapshot returns a copy of the current catalog.
func (r *Registry) Snapshot() Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.clone()
}

// =============================================================================
// QUERIES
// =============================================================================

// ChatModels returns the chat model names in sorted order.
func (r *Registry) ChatModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.catalog.Models))
	for m := range r.catalog.Models {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// HasModel reports whether model is in the chat catalog.
func (r *Registry) HasModel(model string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.catalog.Models[model]
	return ok
}

// Providers returns the ordered providers for model, or nil if unknown.
func (r *Registry) Providers(model string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.catalog.Models[model])
}

// DefaultProvider returns the first provider for model.
func (r *Registry) DefaultProvider(model string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := r.catalog.Models[model]
	if len(providers) == 0 {
		return "", false
	}
	return providers[0], true
}

// ImageModels returns the image model names in catalog order.
func (r *Registry) ImageModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.catalog.ImageModels)
}

// HasImageModel reports whether model is a known image model.
func (r *Registry) HasImageModel(model string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.catalog.ImageModels, model)
}

// ImageEnabled reports whether image generation may be offered: the gateway
// flag is on and at least one image model exists.
func (r *Registry) ImageEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps.ImageGeneration && len(r.catalog.ImageModels) > 0
}

// CheckSelection verifies that provider is offered for model. An empty
// provider is accepted when the model is known.
func (r *Registry) CheckSelection(model, provider string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers, ok := r.catalog.Models[model]
	if !ok {
		return apierr.Invalid(apierr.OpChat, "model %q is not in the catalog", model)
	}
	if provider != "" && !slices.Contains(providers, provider) {
		return apierr.Invalid(apierr.OpChat, "provider %q is not offered for %q", provider, model)
	}
	return nil
}
