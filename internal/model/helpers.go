// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/ollachat/internal/util"
)

// TitleLength is the number of characters kept when deriving a title.
const TitleLength = 30

// =============================================================================
// TITLES
// =============================================================================

// GenerateTitle derives a conversation title from free text: the first
// TitleLength characters, with "..." appended when the text was longer.
// Blank input yields DefaultTitle.
func GenerateTitle(content string) string {
	if strings.TrimSpace(content) == "" {
		return DefaultTitle
	}
	// NFC so a decomposed "é" counts as one character, not two.
	return util.TruncateRunes(norm.NFC.String(content), TitleLength)
}

// GenerateTitleFromMessages derives a title from the first user message in
// msgs, or returns DefaultTitle when there is none.
func GenerateTitleFromMessages(msgs []*Message) string {
	for _, msg := range msgs {
		if msg != nil && msg.Role == RoleUser {
			return GenerateTitle(msg.Content)
		}
	}
	return DefaultTitle
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// TruncateText shortens text to maxLength characters plus "...".
func TruncateText(text string, maxLength int) string {
	return util.TruncateRunes(text, maxLength)
}

// FormatTimestamp renders t relative to now: "just now", "5 minutes ago",
// "3 hours ago", "2 days ago", and a plain date beyond a week.
func FormatTimestamp(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes <= 1 {
			return "just now"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func firstLine(s string) string {
	return util.FirstLine(s)
}
