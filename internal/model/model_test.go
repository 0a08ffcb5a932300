// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	before := time.Now()
	msg := NewMessage("hello", RoleUser)

	require.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, RoleUser, msg.Role)
	assert.False(t, msg.Timestamp.Before(before))

	other := NewMessage("hello", RoleUser)
	assert.NotEqual(t, msg.ID, other.ID, "ids must be unique")
}

func TestRole(t *testing.T) {
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("tool").Valid())
	assert.Equal(t, "You", RoleUser.DisplayName())
}

func TestMessage_SetContentBumpsTimestamp(t *testing.T) {
	msg := NewMessage("", RoleAssistant)
	msg.Timestamp = time.Now().Add(-time.Hour)
	old := msg.Timestamp

	msg.SetContent("Hi")

	assert.Equal(t, "Hi", msg.Content)
	assert.True(t, msg.Timestamp.After(old))
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation(t *testing.T) {
	conv := NewConversation("")
	assert.Equal(t, DefaultTitle, conv.Title)
	assert.True(t, conv.IsEmpty())
	assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)
	assert.True(t, conv.HasDefaultTitle())

	named := NewConversation("Recipes")
	assert.Equal(t, "Recipes", named.Title)
	assert.NotEqual(t, conv.ID, named.ID)
}

func TestConversation_CloneIsDeep(t *testing.T) {
	conv := NewConversation("")
	conv.AddMessage(NewMessage("original", RoleUser))

	cp := conv.Clone()
	cp.Messages[0].Content = "changed"
	cp.Messages = append(cp.Messages, NewMessage("extra", RoleAssistant))

	assert.Equal(t, "original", conv.Messages[0].Content)
	assert.Len(t, conv.Messages, 1)
}

func TestConversation_LoadingNotPersisted(t *testing.T) {
	conv := NewConversation("")
	conv.Loading = true

	data, err := json.Marshal(conv)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "loading")
	assert.NotContains(t, string(data), "Loading")
}

func TestConversation_Meta(t *testing.T) {
	conv := NewConversation("")
	conv.AddMessage(NewMessage("system prompt", RoleSystem))
	conv.AddMessage(NewMessage("first question\nwith details", RoleUser))

	meta := conv.Meta()
	assert.Equal(t, "first question", meta.Preview)
	assert.Equal(t, 2, meta.MessageCount)
}

// =============================================================================
// TITLE TESTS
// =============================================================================

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short stays", "short", "short"},
		{"exactly thirty", strings.Repeat("b", 30), strings.Repeat("b", 30)},
		{"long truncated", strings.Repeat("a", 40), strings.Repeat("a", 30) + "..."},
		{"empty", "", DefaultTitle},
		{"whitespace", "   \n", DefaultTitle},
		{"multibyte", strings.Repeat("日", 31), strings.Repeat("日", 30) + "..."},
		{"decomposed accents", strings.Repeat("e\u0301", 30), strings.Repeat("\u00e9", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateTitle(tt.in))
		})
	}
}

func TestGenerateTitleFromMessages(t *testing.T) {
	assert.Equal(t, DefaultTitle, GenerateTitleFromMessages(nil))
	assert.Equal(t, DefaultTitle, GenerateTitleFromMessages([]*Message{
		NewMessage("only the assistant", RoleAssistant),
	}))

	msgs := []*Message{
		NewMessage("be brief", RoleSystem),
		NewMessage("How do I bake sourdough bread at home?", RoleUser),
		NewMessage("ignored", RoleUser),
	}
	assert.Equal(t, "How do I bake sourdough bread ...", GenerateTitleFromMessages(msgs))
}

// =============================================================================
// DISPLAY HELPER TESTS
// =============================================================================

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "hello", TruncateText("hello", 10))
	assert.Equal(t, "hel...", TruncateText("hello", 3))
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{90 * time.Second, "just now"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{30 * time.Hour, "1 day ago"},
		{3 * 24 * time.Hour, "3 days ago"},
		{10 * 24 * time.Hour, "Mar 10, 2025"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(now.Add(-tt.ago), now), "ago=%v", tt.ago)
	}
}
