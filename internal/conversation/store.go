// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"fmt"
	"strings"
	"sync"
)

// =============================================================================
// MODE
// =============================================================================

// Mode selects which interaction, and which message sequence, is active.
type Mode int

const (
	ModeChat Mode = iota
	ModeImage
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeChat, ModeImage}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeImage:
		return "image"
	default:
		return "chat"
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chat", "":
		return ModeChat, nil
	case "image":
		return ModeImage, nil
	default:
		return ModeChat, fmt.Errorf("unknown mode %q (must be chat or image)", s)
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store keeps one message sequence per mode. It is safe for concurrent use.
//
// The zero value is ready to use with chat active.
type Store struct {
	mu       sync.RWMutex
	messages map[Mode][]Message
	active   Mode
}

// NewStore creates an empty store with chat active.
func NewStore() *Store {
	return &Store{}
}

// Append adds msg to the end of the sequence for mode.
func (s *Store) Append(mode Mode, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messages == nil {
		s.messages = make(map[Mode][]Message, len(Modes))
	}
	s.messages[mode] = append(s.messages[mode], msg)
}

// Clear empties the sequence for mode. Other modes are untouched.
func (s *Store) Clear(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, mode)
}

// Current returns a copy of the sequence for mode, oldest first.
func (s *Store) Current(mode Mode) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.messages[mode]
	out := make([]Message, len(src))
	copy(out, src)
	return out
}

// Len returns the number of messages in the sequence for mode.
func (s *Store) Len(mode Mode) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[mode])
}

// Last returns the most recent message in mode with the given role.
func (s *Store) Last(mode Mode, role Role) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[mode]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role {
			return msgs[i], true
		}
	}
	return Message{}, false
}

// ActiveMode returns the mode the user is currently in.
func (s *Store) ActiveMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActiveMode switches the active mode without touching any sequence.
func (s *Store) SetActiveMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = mode
}

// ActiveMessages returns a copy of the active mode's sequence.
func (s *Store) ActiveMessages() []Message {
	return s.Current(s.ActiveMode())
}
