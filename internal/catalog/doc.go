// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog holds the gateway's feature flags and model catalog and
// answers questions about them.
//
// The Registry is refreshed wholesale from the gateway and read by the
// dispatcher and the UI. A model is offered by an ordered list of providers;
// the first provider is the default. A Selector tracks the user's current
// model and provider and keeps the pair consistent with the catalog.
package catalog
