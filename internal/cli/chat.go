// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command.
//
// Command: chat (also the default when no command is given)
//
// Examples:
//   ollachat                      Continue the active conversation
//   ollachat chat --new           Start a new conversation
//   ollachat chat --resume 2      Resume the second conversation in the list
//
// Interactive commands are listed by /help. Ctrl+C cancels the reply that
// is streaming; Ctrl+D or /quit exits.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/export"
	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/session"
)

// HistoryFile is the REPL input history, kept next to the config file.
const HistoryFile = "chat_history"

type chatFlags struct {
	newConversation bool
	resume          string
}

func newChatCommand(opts *Options) *cobra.Command {
	var flags chatFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.newConversation, "new", "n", false, "start a new conversation")
	cmd.Flags().StringVarP(&flags.resume, "resume", "r", "", "resume a conversation by number or id")
	return cmd
}

func runChat(cmd *cobra.Command, opts *Options, flags chatFlags) error {
	return withApp(cmd, opts, func(ctx context.Context, app *App) error {
		app.Watch()
		app.Session.Start(ctx)

		switch {
		case flags.newConversation:
			app.Conversations.Create()
		case flags.resume != "":
			id, err := app.Conversations.Resolve(flags.resume)
			if err != nil {
				return err
			}
			app.Conversations.SetActive(id)
		}

		r := newREPL(app, cmd.InOrStdin(), cmd.OutOrStdout())
		defer r.close()

		if !app.Client.TestConnection(ctx) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Ollama is not reachable at %s; replies will fail until it is.\n",
				WarningStyle.Render("[WARN]"), app.Client.Endpoint())
		}
		r.welcome()
		return r.run(ctx)
	})
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads REPL input.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// linerReader provides line editing and persistent history on a terminal.
type linerReader struct {
	state       *liner.State
	historyFile string
}

func newLinerReader(historyFile string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	r := &linerReader{state: state, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		_, _ = state.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	return r.state.Prompt(prompt)
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

// Close saves history owner-readable only and restores the terminal.
func (r *linerReader) Close() error {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		_, _ = r.state.WriteHistory(f)
		f.Close()
	}
	return r.state.Close()
}

// scanReader reads piped input one line at a time.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) AppendHistory(string) {}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

// repl is one interactive session on top of an App.
type repl struct {
	app  *App
	in   lineReader
	out  io.Writer
	md   *glamour.TermRenderer
	clip *export.Clipboard

	confirm   confirmFunc
	pick      func(models []ollama.ModelInfo, current string) (string, error)
	interrupt func(ctx context.Context) (context.Context, context.CancelFunc)
	now       func() time.Time
}

func newREPL(app *App, in io.Reader, out io.Writer) *repl {
	r := &repl{
		app:     app,
		out:     out,
		md:      newMarkdownRenderer(out, app.Config.UI, app.Settings.Get().Theme),
		confirm: surveyConfirm,
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
		now: time.Now,
	}

	if f, ok := in.(*os.File); ok && isTerminal(f) && isTerminal(out) {
		r.in = newLinerReader(filepath.Join(filepath.Dir(app.ConfigPath), HistoryFile))
		r.pick = func(models []ollama.ModelInfo, current string) (string, error) {
			return pickModel(models, current, os.Stdin, out)
		}
	} else {
		r.in = &scanReader{scanner: bufio.NewScanner(in)}
	}

	var term *os.File
	if f, ok := out.(*os.File); ok {
		term = f
	}
	r.clip = export.NewClipboard(term, app.Notifier)
	return r
}

func (r *repl) close() {
	_ = r.in.Close()
}

func (r *repl) prompt() string {
	m := r.app.Settings.Get().Model
	if m == "" {
		m = "ollachat"
	}
	return m + "> "
}

func (r *repl) welcome() {
	s := r.app.Settings.Get()
	fmt.Fprintln(r.out, TitleStyle.Render("ollachat "+Version))
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Server:"), ValueStyle.Render(r.app.Client.Endpoint()))
	if s.Model != "" {
		fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Model:"), ValueStyle.Render(s.Model))
	}
	if conv := r.app.Conversations.Active(); conv != nil {
		fmt.Fprintf(r.out, "%s %s (%d messages)\n", RenderLabel("Conversation:"), ValueStyle.Render(conv.Title), len(conv.Messages))
	}
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, Ctrl+C cancels a reply, Ctrl+D exits."))
	fmt.Fprintln(r.out)
}

// run reads and handles lines until EOF or /quit.
func (r *repl) run(ctx context.Context) error {
	for {
		line, err := r.in.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				r.summary()
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.in.AppendHistory(line)

		quit, err := r.handle(ctx, line)
		if err != nil {
			r.showError(err)
		}
		if quit {
			r.summary()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// showError prints err unless the client already reported it.
func (r *repl) showError(err error) {
	if ollama.IsTransport(err) || ollama.IsDecode(err) {
		return
	}
	fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
}

// handle processes one input line and reports whether to exit.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if strings.HasPrefix(line, "/") {
		return r.command(ctx, line)
	}
	if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
		return true, nil
	}
	return false, r.send(ctx, line)
}

// send submits prompt and streams the reply. Interrupting cancels only the
// reply; what arrived so far is kept.
func (r *repl) send(ctx context.Context, prompt string) error {
	if _, err := r.app.Model(ctx); err != nil {
		return err
	}

	sctx, stop := r.interrupt(ctx)
	defer stop()

	started := false
	reply, err := r.app.Session.Submit(sctx, prompt, ollama.Handlers{
		OnStart: func() {
			started = true
			fmt.Fprintln(r.out, roleLabel(model.RoleAssistant))
		},
		OnChunk: func(text string) {
			fmt.Fprint(r.out, text)
		},
	})
	if started {
		fmt.Fprintln(r.out)
	}

	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("%d chunks in %s", reply.Chunks, formatElapsed(reply.Elapsed))))
	fmt.Fprintln(r.out)
	return nil
}

func (r *repl) summary() {
	u := r.app.Usage.Current()
	st := r.app.Session.GetStatus()
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("Session: %s, %d replies, %d characters.",
		session.FormatDuration(st.Duration), u.Streams, u.Characters)))
}

// formatElapsed formats a stream duration for the reply footer.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// setSetting applies one key/value change through the settings store.
func setSetting(store *config.Store, key, value string) (config.Settings, error) {
	var p config.SettingsPatch
	if err := config.SetKey(&p, key, value); err != nil {
		return config.Settings{}, NewUsageError(err.Error(), "temperature 0.5")
	}
	return store.Update(p)
}
