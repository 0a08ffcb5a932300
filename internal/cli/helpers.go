// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/util"
)

// =============================================================================
// CONFIRMATION
// =============================================================================

// errConfirmNeeded is returned when a destructive command runs without a
// terminal and without --yes.
var errConfirmNeeded = NewUsageError("confirmation required; rerun with --yes", "")

// confirmFunc asks a yes/no question.
type confirmFunc func(message string) (bool, error)

// surveyConfirm asks on the terminal, defaulting to no.
func surveyConfirm(message string) (bool, error) {
	if !IsTTY() {
		return false, errConfirmNeeded
	}
	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: message}, &ok); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return ok, nil
}

// confirmer returns a confirmFunc that skips the question when yes is set.
func confirmer(yes bool) confirmFunc {
	if yes {
		return func(string) (bool, error) { return true, nil }
	}
	return surveyConfirm
}

// =============================================================================
// MARKDOWN
// =============================================================================

// newMarkdownRenderer returns a glamour renderer for out, or nil when
// rendering is off or out is not a terminal.
func newMarkdownRenderer(out io.Writer, cfg config.UIConfig, theme config.Theme) *glamour.TermRenderer {
	if !cfg.Markdown || !isTerminal(out) {
		return nil
	}
	width := cfg.WordWrap
	if tw := terminalWidth(out) - 4; width <= 0 || width > tw {
		width = tw
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(config.ResolveTheme(theme))),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders text with r, returning text unchanged when r is
// nil or rendering fails.
func renderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// CONVERSATION OUTPUT
// =============================================================================

const listTitleWidth = 36

// writeConversationList prints one row per conversation, numbered the way
// conversation.Store.Resolve accepts positions.
func writeConversationList(w io.Writer, convs []*model.Conversation, activeID string, now time.Time) {
	if len(convs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversations yet."))
		return
	}
	for i, c := range convs {
		marker := "  "
		title := util.PadRight(c.Title, listTitleWidth)
		if c.ID == activeID {
			marker = ActiveStyle.Render("* ")
			title = ActiveStyle.Render(title)
		}
		fmt.Fprintf(w, "%s%3d  %s  %s  %s  %s\n",
			marker,
			i+1,
			title,
			DimStyle.Render(shortID(c.ID)),
			util.PadRight(fmt.Sprintf("%d msgs", len(c.Messages)), 9),
			DimStyle.Render(model.FormatTimestamp(c.UpdatedAt, now)),
		)
	}
}

// writeConversation prints every message of conv, rendering assistant
// replies as markdown when md is set.
func writeConversation(w io.Writer, conv *model.Conversation, md *glamour.TermRenderer) {
	fmt.Fprintln(w, TitleStyle.Render(conv.Title))
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%s  created %s", conv.ID, conv.CreatedAt.Format("2006-01-02 15:04"))))
	for _, msg := range conv.Messages {
		fmt.Fprintln(w)
		fmt.Fprintln(w, roleLabel(msg.Role))
		if msg.Role == model.RoleAssistant {
			fmt.Fprintln(w, renderMarkdown(md, msg.Content))
		} else {
			fmt.Fprintln(w, msg.Content)
		}
	}
}

func roleLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return PromptStyle.Render(r.DisplayName() + ":")
	case model.RoleAssistant:
		return SuccessStyle.Render(r.DisplayName() + ":")
	}
	return DimStyle.Render(r.DisplayName() + ":")
}

// shortID is the id prefix shown in lists; Resolve accepts it.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// lastReply returns the newest assistant message with content.
func lastReply(conv *model.Conversation) (*model.Message, error) {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		if m.Role == model.RoleAssistant && !m.IsEmpty() {
			return m, nil
		}
	}
	return nil, errors.New("no reply to copy yet")
}
