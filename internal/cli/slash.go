// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/conversation"
	"github.com/jeranaias/ollachat/internal/export"
	"github.com/jeranaias/ollachat/internal/ollama"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

type slashCommand struct {
	name    string
	aliases []string
	args    string
	help    string
	run     func(r *repl, ctx context.Context, args []string) (bool, error)
}

// slashCommands is the /help order.
var slashCommands []slashCommand

func init() {
	slashCommands = []slashCommand{
		{name: "help", aliases: []string{"h", "?"}, help: "Show available commands", run: (*repl).cmdHelp},
		{name: "new", aliases: []string{"n"}, help: "Start a new conversation", run: (*repl).cmdNew},
		{name: "list", aliases: []string{"ls"}, help: "List conversations", run: (*repl).cmdList},
		{name: "switch", aliases: []string{"s"}, args: "<n|id>", help: "Switch to a conversation", run: (*repl).cmdSwitch},
		{name: "show", help: "Show the current conversation", run: (*repl).cmdShow},
		{name: "rename", args: "<title>", help: "Rename the current conversation", run: (*repl).cmdRename},
		{name: "delete", aliases: []string{"rm"}, args: "[n|id]", help: "Delete a conversation (default: current)", run: (*repl).cmdDelete},
		{name: "clear", help: "Delete all conversations", run: (*repl).cmdClear},
		{name: "search", aliases: []string{"find"}, args: "<text>", help: "Search titles and messages", run: (*repl).cmdSearch},
		{name: "copy", aliases: []string{"cp"}, args: "[all]", help: "Copy the last reply (or the conversation)", run: (*repl).cmdCopy},
		{name: "export", args: "[md|json] [dir]", help: "Export the current conversation to a file", run: (*repl).cmdExport},
		{name: "model", aliases: []string{"m"}, args: "[name]", help: "Show or switch the model", run: (*repl).cmdModel},
		{name: "models", help: "List installed models", run: (*repl).cmdModels},
		{name: "settings", help: "Show settings", run: (*repl).cmdSettings},
		{name: "set", args: "<key> <value>", help: "Change a setting", run: (*repl).cmdSet},
		{name: "system", args: "<prompt>", help: "Set the system prompt", run: (*repl).cmdSystem},
		{name: "status", help: "Show session status", run: (*repl).cmdStatus},
		{name: "save", help: "Save now", run: (*repl).cmdSave},
		{name: "quit", aliases: []string{"q", "exit"}, help: "Exit chat", run: func(*repl, context.Context, []string) (bool, error) { return true, nil }},
	}
}

func findSlashCommand(name string) (slashCommand, bool) {
	name = strings.ToLower(name)
	for _, c := range slashCommands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return slashCommand{}, false
}

// command dispatches a /command line.
func (r *repl) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return false, NewUsageError("empty command", "/help")
	}
	c, ok := findSlashCommand(fields[0])
	if !ok {
		if guess := SuggestSlashCommand(fields[0]); guess != "" {
			return false, NewUsageError("unknown command: /"+fields[0]+" (did you mean /"+guess+"?)", "/"+guess)
		}
		return false, NewUsageError("unknown command: /"+fields[0], "/help")
	}
	return c.run(r, ctx, fields[1:])
}

// restOf joins args back into free text.
func restOf(args []string) string {
	return strings.Join(args, " ")
}

func (r *repl) cmdHelp(context.Context, []string) (bool, error) {
	fmt.Fprintln(r.out, SectionStyle.Render("Commands"))
	for _, c := range slashCommands {
		usage := "/" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(r.out, "  %-28s %s\n", CommandStyle.Render(usage), c.help)
	}
	return false, nil
}

func (r *repl) cmdNew(context.Context, []string) (bool, error) {
	r.app.Conversations.Create()
	fmt.Fprintln(r.out, SuccessStyle.Render("Started a new conversation."))
	return false, nil
}

func (r *repl) cmdList(context.Context, []string) (bool, error) {
	writeConversationList(r.out, r.app.Conversations.List(), r.app.Conversations.ActiveID(), r.now())
	return false, nil
}

func (r *repl) cmdSwitch(_ context.Context, args []string) (bool, error) {
	if len(args) == 0 {
		return false, NewUsageError("which conversation?", "/switch 2")
	}
	id, err := r.app.Conversations.Resolve(args[0])
	if err != nil {
		return false, err
	}
	r.app.Conversations.SetActive(id)
	conv := r.app.Conversations.Get(id)
	fmt.Fprintf(r.out, "Switched to %s (%d messages)\n", ActiveStyle.Render(conv.Title), len(conv.Messages))
	return false, nil
}

func (r *repl) cmdShow(context.Context, []string) (bool, error) {
	conv := r.app.Conversations.Active()
	if conv == nil {
		return false, conversation.ErrNotFound
	}
	writeConversation(r.out, conv, r.md)
	return false, nil
}

func (r *repl) cmdRename(_ context.Context, args []string) (bool, error) {
	title := strings.TrimSpace(restOf(args))
	if title == "" {
		return false, NewUsageError("title is empty", "/rename Go questions")
	}
	conv := r.app.Conversations.Active()
	if conv == nil {
		return false, conversation.ErrNotFound
	}
	conv.Title = title
	r.app.Conversations.Update(conv)
	return false, nil
}

func (r *repl) cmdDelete(_ context.Context, args []string) (bool, error) {
	id := r.app.Conversations.ActiveID()
	if len(args) > 0 {
		var err error
		if id, err = r.app.Conversations.Resolve(args[0]); err != nil {
			return false, err
		}
	}
	conv := r.app.Conversations.Get(id)
	if conv == nil {
		return false, conversation.ErrNotFound
	}
	ok, err := r.confirm(fmt.Sprintf("Delete %q?", conv.Title))
	if err != nil || !ok {
		return false, err
	}
	r.app.Session.Cancel(id)
	r.app.Conversations.Delete(id)
	fmt.Fprintln(r.out, "Deleted.")
	return false, nil
}

func (r *repl) cmdClear(context.Context, []string) (bool, error) {
	n := r.app.Conversations.Len()
	if n == 0 {
		return false, nil
	}
	ok, err := r.confirm(fmt.Sprintf("Delete all %d conversations?", n))
	if err != nil || !ok {
		return false, err
	}
	r.app.Session.CancelAll()
	r.app.Conversations.Clear()
	fmt.Fprintln(r.out, "All conversations deleted.")
	return false, nil
}

func (r *repl) cmdSearch(_ context.Context, args []string) (bool, error) {
	query := restOf(args)
	if query == "" {
		return false, NewUsageError("search text is empty", "/search goroutine")
	}
	results := r.app.Conversations.Search(query)
	if len(results) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No matches."))
		return false, nil
	}
	for _, c := range results {
		fmt.Fprintf(r.out, "  %s  %s\n", DimStyle.Render(shortID(c.ID)), c.Title)
	}
	return false, nil
}

func (r *repl) cmdCopy(_ context.Context, args []string) (bool, error) {
	conv := r.app.Conversations.Active()
	if conv == nil {
		return false, conversation.ErrNotFound
	}
	text, err := copyText(conv, len(args) > 0 && args[0] == "all")
	if err != nil {
		return false, err
	}
	r.clip.Copy(text)
	return false, nil
}

func (r *repl) cmdExport(_ context.Context, args []string) (bool, error) {
	conv := r.app.Conversations.Active()
	if conv == nil {
		return false, conversation.ErrNotFound
	}
	format := "markdown"
	opts := export.DefaultOptions()
	opts.Model = r.app.Settings.Get().Model
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) > 1 {
		opts.OutputDir = args[1]
	}
	exp, err := export.ForFormat(format, opts)
	if err != nil {
		return false, NewUsageError(err.Error(), "/export json ~/Downloads")
	}
	path, err := export.ExportToFile(conv, exp, opts)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "Exported to %s\n", path)
	return false, nil
}

func (r *repl) cmdModel(ctx context.Context, args []string) (bool, error) {
	current := r.app.Settings.Get().Model
	if len(args) == 0 && r.pick == nil {
		if current == "" {
			current = "(none)"
		}
		fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Model:"), ValueStyle.Render(current))
		return false, nil
	}

	models, err := r.app.Client.ListModels(ctx)
	if err != nil {
		return false, err
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	} else if name, err = r.pick(models, current); err != nil || name == "" {
		return false, err
	}
	if err := selectModel(r.app, models, name); err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "Using %s\n", ActiveStyle.Render(name))
	return false, nil
}

func (r *repl) cmdModels(ctx context.Context, _ []string) (bool, error) {
	models, err := r.app.Client.ListModels(ctx)
	if err != nil {
		return false, err
	}
	writeModelList(r.out, models, r.app.Settings.Get().Model, r.now())
	return false, nil
}

func (r *repl) cmdSettings(context.Context, []string) (bool, error) {
	writeSettings(r.out, r.app.Settings.Get())
	return false, nil
}

func (r *repl) cmdSet(_ context.Context, args []string) (bool, error) {
	if len(args) < 2 {
		return false, NewUsageError("usage: /set <key> <value> (keys: "+strings.Join(config.Keys(), ", ")+")", "/set temperature 0.3")
	}
	if _, err := setSetting(r.app.Settings, args[0], restOf(args[1:])); err != nil {
		return false, err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Updated "+args[0]+"."))
	return false, nil
}

func (r *repl) cmdSystem(_ context.Context, args []string) (bool, error) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, r.app.Settings.Get().SystemPrompt)
		return false, nil
	}
	if _, err := setSetting(r.app.Settings, "system_prompt", restOf(args)); err != nil {
		return false, err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("System prompt updated."))
	return false, nil
}

func (r *repl) cmdStatus(ctx context.Context, _ []string) (bool, error) {
	writeStatus(r.out, collectStatus(ctx, r.app))
	return false, nil
}

func (r *repl) cmdSave(ctx context.Context, _ []string) (bool, error) {
	if err := r.app.Session.Save(ctx); err != nil {
		return false, err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Saved."))
	return false, nil
}

// =============================================================================
// SHARED
// =============================================================================

// selectModel makes name the selected model if it is installed.
func selectModel(app *App, models []ollama.ModelInfo, name string) error {
	for _, m := range models {
		if m.Name == name {
			_, err := app.Settings.Update(config.SettingsPatch{Model: &name})
			return err
		}
	}
	return &CommandError{Command: "model", Action: "select", Reason: "not installed: " + name + " (try: ollama pull " + name + ")", Code: ExitNotFound}
}
