// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
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
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a conversation. Content grows while an
// assistant reply streams in; Timestamp tracks the last modification.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID, stamped with the current time.
func NewMessage(content string, role Role) *Message {
	return &Message{
		ID:        NewID(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now(),
	}
}

// NewID returns a new opaque identifier for messages and conversations.
func NewID() string {
	return uuid.NewString()
}

// SetContent replaces the content and refreshes the timestamp.
func (m *Message) SetContent(content string) {
	m.Content = content
	m.Timestamp = time.Now()
}

// Preview returns the first line of the message, truncated to maxLen runes.
func (m *Message) Preview(maxLen int) string {
	return TruncateText(firstLine(m.Content), maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return m.Content == ""
}

// Clone returns a copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
