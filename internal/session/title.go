// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/nexus-tui/internal/conversation"
)

const (
	// TitleMaxRunes is how much of the first user message becomes the title.
	TitleMaxRunes = 50

	// PlaceholderTitle is used when no user message has content.
	PlaceholderTitle = "New Chat"

	ellipsis = "..."
)

// DeriveTitle builds a session title from the first user message with
// content: whitespace folded to single spaces, NFC-normalised, cut to
// TitleMaxRunes runes and always followed by "...".
func DeriveTitle(msgs []conversation.Message) string {
	for _, m := range msgs {
		if !m.IsUser() {
			continue
		}
		text := strings.Join(strings.Fields(norm.NFC.String(m.Content)), " ")
		if text == "" {
			continue
		}
		if runes := []rune(text); len(runes) > TitleMaxRunes {
			text = strings.TrimRight(string(runes[:TitleMaxRunes]), " ")
		}
		return text + ellipsis
	}
	return PlaceholderTitle
}
