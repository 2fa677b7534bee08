// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for nexus.
//
// Configuration is read from ~/.nexus/config.toml on top of built-in
// defaults. Environment variables (optionally seeded from a .env file) are
// applied last:
//
//   - NEXUS_URL: overrides gateway.url
//   - NEXUS_MODEL: overrides chat.model
//   - NEXUS_PROVIDER: overrides chat.provider
//   - NEXUS_IMAGE_MODEL: overrides image.model
//   - NEXUS_LOG_LEVEL: overrides log.level
//
// # Usage
//
//	cfg, err := config.Load()
//	client := gateway.NewClient(cfg.GatewayConfig())
//
// Watch reloads the file when it changes on disk:
//
//	go config.Watch(ctx, path, func(cfg *config.Config) { ... })
package config
