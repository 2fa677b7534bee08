// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/apierr"
)

func newLoadedRegistry() *Registry {
	r := NewRegistry()
	r.Replace(DefaultCapabilities, Catalog{Models: sampleModels().Models, ImageModels: []string{"flux"}})
	return r
}

func TestSelector_SetModelResetsProvider(t *testing.T) {
	s := NewSelector(newLoadedRegistry(), Selection{Model: "microsoft/phi-4", Provider: "g4f.Provider.Blackbox"})

	require.NoError(t, s.SetModel("google/gemma-3-4b-it"))
	assert.Equal(t, Selection{Model: "google/gemma-3-4b-it", Provider: "g4f.Provider.DeepInfra"}, s.Current())

	require.NoError(t, s.SetModel("microsoft/phi-4"))
	assert.Equal(t, "g4f.Provider.DeepInfra", s.Current().Provider)
}

func TestSelector_SetModelUnknown(t *testing.T) {
	s := NewSelector(newLoadedRegistry(), Selection{Model: "microsoft/phi-4", Provider: "g4f.Provider.DeepInfra"})
	assert.ErrorIs(t, s.SetModel("nope"), apierr.ErrInvalidRequest)
	assert.Equal(t, "microsoft/phi-4", s.Current().Model)
}

func TestSelector_SetProvider(t *testing.T) {
	s := NewSelector(newLoadedRegistry(), Selection{Model: "microsoft/phi-4", Provider: "g4f.Provider.DeepInfra"})

	require.NoError(t, s.SetProvider("g4f.Provider.Blackbox"))
	assert.Equal(t, "g4f.Provider.Blackbox", s.Current().Provider)

	assert.ErrorIs(t, s.SetProvider("g4f.Provider.Other"), apierr.ErrInvalidRequest)
	assert.Equal(t, "g4f.Provider.Blackbox", s.Current().Provider)
}

func TestSelector_Cycling(t *testing.T) {
	s := NewSelector(newLoadedRegistry(), Selection{Model: "microsoft/phi-4", Provider: "g4f.Provider.DeepInfra"})

	sel := s.NextProvider()
	assert.Equal(t, "g4f.Provider.Blackbox", sel.Provider)
	sel = s.NextProvider()
	assert.Equal(t, "g4f.Provider.DeepInfra", sel.Provider)

	sel = s.NextModel()
	assert.Equal(t, "google/gemma-3-4b-it", sel.Model, "wraps to the first sorted model")
	assert.Equal(t, "g4f.Provider.DeepInfra", sel.Provider)
}

func TestSelector_Resolve(t *testing.T) {
	s := NewSelector(newLoadedRegistry(), Selection{Model: "microsoft/phi-4"})
	assert.Equal(t, "g4f.Provider.DeepInfra", s.Resolve().Provider)

	s = NewSelector(newLoadedRegistry(), Selection{Model: "retired/model", Provider: "x"})
	sel := s.Resolve()
	assert.Equal(t, "google/gemma-3-4b-it", sel.Model)
	assert.Equal(t, "g4f.Provider.DeepInfra", sel.Provider)
}
