// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// RenderMessage renders one message as a bordered block with a meta line.
func RenderMessage(theme *styles.Theme, msg conversation.Message, width int) string {
	style := theme.AssistantMessage
	if msg.IsUser() {
		style = theme.UserMessage
	}
	if width > 4 {
		style = style.Width(width - 2)
	}

	body := msg.Content
	if msg.IsImage {
		body = theme.ImageLink.Render(msg.ImageURL)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.MessageMeta.Render(metaLine(msg)),
		style.Render(body),
	)
}

// RenderConversation renders messages separated by blank lines, or a hint
// when there are none.
func RenderConversation(theme *styles.Theme, msgs []conversation.Message, mode conversation.Mode, width int) string {
	if len(msgs) == 0 {
		if mode == conversation.ModeImage {
			return theme.Empty.Render("Describe an image to generate it.")
		}
		return theme.Empty.Render("Start a conversation by typing a message.")
	}
	blocks := make([]string, len(msgs))
	for i, m := range msgs {
		blocks[i] = RenderMessage(theme, m, width)
	}
	return strings.Join(blocks, "\n\n")
}

func metaLine(msg conversation.Message) string {
	parts := []string{msg.Role.DisplayName()}
	if msg.Model != "" {
		parts = append(parts, msg.Model)
	}
	if msg.Provider != "" {
		parts = append(parts, msg.Provider)
	}
	if !msg.Timestamp.IsZero() {
		parts = append(parts, msg.Timestamp.Local().Format("15:04"))
	}
	return strings.Join(parts, " · ")
}
