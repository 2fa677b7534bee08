// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nexus command line.
//
// Running nexus with no subcommand starts the terminal UI. The one-shot
// commands talk to the same gateway:
//
//	nexus ask "question"        Send one chat message
//	nexus imagine "prompt"      Generate one image
//	nexus models                List chat and image models
//	nexus providers             List providers
//	nexus status [--watch]      Probe the gateway
//	nexus doctor                Diagnose configuration and connectivity
//	nexus sessions ...          Browse, delete, archive and export sessions
//	nexus config ...            Show, locate, initialise or validate the config
//
// Every command accepts --json for machine-readable output.
package cli
