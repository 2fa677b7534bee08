// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"slices"
	"sync"

	"github.com/jeranaias/nexus-tui/internal/apierr"
)

// Selection is a chat model and the provider that should serve it.
type Selection struct {
	Model    string
	Provider string
}

// Selector holds the user's current Selection and keeps it valid against a
// Registry. It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	reg *Registry
	sel Selection
}

// NewSelector creates a selector over reg starting at initial.
func NewSelector(reg *Registry, initial Selection) *Selector {
	return &Selector{reg: reg, sel: initial}
}

// Current returns the current selection.
func (s *Selector) Current() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// SetModel changes the model and resets the provider to the model's default.
func (s *Selector) SetModel(model string) error {
	provider, ok := s.reg.DefaultProvider(model)
	if !ok {
		return apierr.Invalid(apierr.OpChat, "model %q is not in the catalog", model)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = Selection{Model: model, Provider: provider}
	return nil
}

// SetProvider changes the provider; it must be offered for the current model.
func (s *Selector) SetProvider(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.reg.Providers(s.sel.Model), provider) {
		return apierr.Invalid(apierr.OpChat, "provider %q is not offered for %q", provider, s.sel.Model)
	}
	s.sel.Provider = provider
	return nil
}

// NextModel advances to the following chat model in sorted order, wrapping
// around, and resets the provider.
func (s *Selector) NextModel() Selection {
	models := s.reg.ChatModels()
	if len(models) == 0 {
		return s.Current()
	}
	cur := s.Current()
	next := models[0]
	if i := slices.Index(models, cur.Model); i >= 0 {
		next = models[(i+1)%len(models)]
	}
	_ = s.SetModel(next)
	return s.Current()
}

// NextProvider advances to the following provider of the current model.
func (s *Selector) NextProvider() Selection {
	cur := s.Current()
	providers := s.reg.Providers(cur.Model)
	if len(providers) == 0 {
		return cur
	}
	next := providers[0]
	if i := slices.Index(providers, cur.Provider); i >= 0 {
		next = providers[(i+1)%len(providers)]
	}
	_ = s.SetProvider(next)
	return s.Current()
}

// Resolve returns the current selection with an empty provider filled in from
// the catalog. If the current model has left the catalog, the first model is
// chosen instead.
func (s *Selector) Resolve() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reg.HasModel(s.sel.Model) {
		if models := s.reg.ChatModels(); len(models) > 0 {
			s.sel.Model = models[0]
			s.sel.Provider = ""
		}
	}
	providers := s.reg.Providers(s.sel.Model)
	if len(providers) > 0 && !slices.Contains(providers, s.sel.Provider) {
		s.sel.Provider = providers[0]
	}
	return s.sel
}
