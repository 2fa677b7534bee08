// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// imagePromptPrefix marks the user turn that requested an image.
const imagePromptPrefix = "Generate image: "

// Message is one turn of a conversation. Treat it as a value.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Set on assistant messages from the server response.
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`

	IsImage  bool   `json:"is_image,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message attributed to the model and
// provider that answered. A zero timestamp is replaced with the current time.
func NewAssistantMessage(content, model, provider string, ts time.Time) Message {
	if ts.IsZero() {
		ts = time.Now()
	}
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: ts,
		Model:     model,
		Provider:  provider,
	}
}

// NewImageMessage creates the assistant message that carries a generated image.
func NewImageMessage(imageURL, model string, ts time.Time) Message {
	m := NewAssistantMessage(ImageMarkdown(imageURL), model, "", ts)
	m.IsImage = true
	m.ImageURL = imageURL
	return m
}

// ImagePromptContent is the user message content recorded for an image request.
func ImagePromptContent(prompt string) string {
	return imagePromptPrefix + prompt
}

// ImageMarkdown renders an image URL as the markdown stored in message content.
func ImageMarkdown(url string) string {
	return "![Generated Image](" + url + ")"
}

// IsUser reports whether the message came from the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// Preview returns the first maxLen runes of the content on a single line.
func (m Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
