// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client for the AI Nexus gateway API.
//
// The gateway fronts many chat and image models behind one JSON API. This
// package speaks that API and nothing more: it owns no conversation state and
// applies no timeouts of its own. Every call takes a context and the caller
// decides the budget (chat, image generation and health probes use very
// different ones).
//
// # Endpoints
//
//   - GET    /api/capabilities
//   - GET    /api/models
//   - GET    /api/models/health
//   - GET    /api/providers
//   - POST   /api/chat
//   - POST   /api/generate-image
//   - GET    /api/sessions
//   - POST   /api/sessions
//   - GET    /api/sessions/{id}
//   - DELETE /api/sessions/{id}
//   - POST   /api/sessions/{id}/messages
//
// Every failure is returned as an *apierr.Error.
//
// # Usage
//
//	client := gateway.NewClient(gateway.DefaultConfig())
//	resp, err := client.Chat(ctx, &gateway.ChatRequest{
//	    Model:    "microsoft/phi-4",
//	    Messages: []gateway.Message{{Role: "user", Content: "Hello"}},
//	})
package gateway
