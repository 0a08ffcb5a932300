// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/conversation"
	"github.com/jeranaias/ollachat/internal/model"
)

// ConversationSummary is the --json form of a listed conversation.
type ConversationSummary struct {
	Position  int       `json:"position"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func summarize(convs []*model.Conversation, activeID string) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(convs))
	for i, c := range convs {
		out = append(out, ConversationSummary{
			Position:  i + 1,
			ID:        c.ID,
			Title:     c.Title,
			Messages:  len(c.Messages),
			Active:    c.ID == activeID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return out
}

func newConversationsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "Manage saved conversations",
		Long: `Manage saved conversations. A conversation is referred to by its number in
'conversations list' (newest first), its id or an unambiguous id prefix.`,
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				convs := app.Conversations.List()
				if opts.JSON {
					return printJSON(cmd, summarize(convs, app.Conversations.ActiveID()))
				}
				writeConversationList(cmd.OutOrStdout(), convs, app.Conversations.ActiveID(), time.Now())
				return nil
			})
		},
	}

	var raw bool
	show := &cobra.Command{
		Use:   "show [ref]",
		Short: "Print a conversation (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				conv, err := resolveConversation(app, args)
				if err != nil {
					return err
				}
				if opts.JSON {
					return printJSON(cmd, conv)
				}
				md := newMarkdownRenderer(cmd.OutOrStdout(), app.Config.UI, app.Settings.Get().Theme)
				if raw {
					md = nil
				}
				writeConversation(cmd.OutOrStdout(), conv, md)
				return nil
			})
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "do not render markdown")

	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find conversations by title or message text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				results := app.Conversations.Search(strings.Join(args, " "))
				if opts.JSON {
					return printJSON(cmd, summarize(results, app.Conversations.ActiveID()))
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("No matches."))
					return nil
				}
				for _, c := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", DimStyle.Render(shortID(c.ID)), c.Title)
				}
				return nil
			})
		},
	}

	use := &cobra.Command{
		Use:     "use <ref>",
		Aliases: []string{"switch"},
		Short:   "Make a conversation the active one",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				id, err := app.Conversations.Resolve(args[0])
				if err != nil {
					return err
				}
				app.Conversations.SetActive(id)
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active: %s\n", ActiveStyle.Render(app.Conversations.Get(id).Title))
				return nil
			})
		},
	}

	newConv := &cobra.Command{
		Use:   "new [title]",
		Short: "Start a new, empty conversation and make it active",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				conv := app.Conversations.Create()
				if title := strings.TrimSpace(strings.Join(args, " ")); title != "" {
					conv.Title = title
					app.Conversations.Update(conv)
				}
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", shortID(conv.ID))
				return nil
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename <ref> <title>",
		Short: "Change a conversation's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				conv, err := resolveConversation(app, args[:1])
				if err != nil {
					return err
				}
				conv.Title = strings.Join(args[1:], " ")
				app.Conversations.Update(conv)
				return app.Session.Save(ctx)
			})
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:     "delete <ref>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				conv, err := resolveConversation(app, args)
				if err != nil {
					return err
				}
				ok, err := confirmer(yes)(fmt.Sprintf("Delete %q (%d messages)?", conv.Title, len(conv.Messages)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
				app.Conversations.Delete(conv.ID)
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", conv.Title)
				return nil
			})
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	var clearYes bool
	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Delete all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				n := app.Conversations.Len()
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("No conversations."))
					return nil
				}
				ok, err := confirmer(clearYes)(fmt.Sprintf("Delete all %d conversations?", n))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
				app.Conversations.Clear()
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d conversations\n", n)
				return nil
			})
		},
	}
	clearAll.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")

	cmd.AddCommand(list, show, search, use, newConv, rename, del, clearAll)
	return cmd
}

// resolveConversation returns the conversation args[0] refers to, or the
// active one when args is empty.
func resolveConversation(app *App, args []string) (*model.Conversation, error) {
	id := app.Conversations.ActiveID()
	if len(args) > 0 {
		var err error
		if id, err = app.Conversations.Resolve(args[0]); err != nil {
			return nil, err
		}
	}
	if id == "" {
		return nil, fmt.Errorf("no active conversation: %w", conversation.ErrNotFound)
	}
	conv := app.Conversations.Get(id)
	if conv == nil {
		return nil, conversation.ErrNotFound
	}
	return conv, nil
}
