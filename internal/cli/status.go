// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/session"
)

// =============================================================================
// PING
// =============================================================================

func newPingCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the Ollama server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				url := app.Client.Endpoint()
				ok := app.Client.TestConnection(ctx)
				if opts.JSON {
					if err := printJSON(cmd, map[string]any{"url": url, "reachable": ok}); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", RenderStatus(ok), url)
				}
				if !ok {
					return &CommandError{Command: "ping", Action: "connect", Reason: "server not reachable at " + url, Code: ExitNotRunning}
				}
				return nil
			})
		},
	}
}

// =============================================================================
// STATUS
// =============================================================================

// StatusReport is what the status command and /status show.
type StatusReport struct {
	Endpoint      string         `json:"endpoint"`
	Reachable     bool           `json:"reachable"`
	Model         string         `json:"model"`
	Conversations int            `json:"conversations"`
	Active        string         `json:"active,omitempty"`
	Storage       string         `json:"storage"`
	ConfigFile    string         `json:"config_file"`
	LogFile       string         `json:"log_file"`
	Session       session.Status `json:"session"`
	Replies       int            `json:"replies"`
	Failures      int            `json:"failures"`
	Characters    int            `json:"characters"`
}

func collectStatus(ctx context.Context, app *App) StatusReport {
	usage := app.Usage.Current()
	r := StatusReport{
		Endpoint:      app.Client.Endpoint(),
		Reachable:     app.Client.TestConnection(ctx),
		Model:         app.Settings.Get().Model,
		Conversations: app.Conversations.Len(),
		Storage:       app.Config.Storage.Backend + ": " + app.Backend.Location(),
		ConfigFile:    app.ConfigPath,
		LogFile:       app.Config.Logging.File,
		Session:       app.Session.GetStatus(),
		Replies:       usage.Streams,
		Failures:      usage.Failures,
		Characters:    usage.Characters,
	}
	if conv := app.Conversations.Active(); conv != nil {
		r.Active = conv.Title
	}
	return r
}

func writeStatus(w io.Writer, r StatusReport) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", RenderLabel(label), ValueStyle.Render(value))
	}
	fmt.Fprintln(w, TitleStyle.Render("Status"))
	fmt.Fprintf(w, "%s %s %s\n", RenderLabel("Server:"), RenderStatus(r.Reachable), r.Endpoint)
	model := r.Model
	if model == "" {
		model = "(none)"
	}
	row("Model:", model)
	row("Conversations:", strconv.Itoa(r.Conversations))
	if r.Active != "" {
		row("Active:", r.Active)
	}
	row("Storage:", r.Storage)
	row("Config:", r.ConfigFile)
	row("Log:", r.LogFile)
	row("Session:", session.FormatDuration(r.Session.Duration))
	if !r.Session.LastSave.IsZero() {
		row("Last save:", humanize.Time(r.Session.LastSave))
	}
	row("Replies:", fmt.Sprintf("%d (%d failed), %s characters", r.Replies, r.Failures, humanize.Comma(int64(r.Characters))))
}

func newStatusCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server, model and storage status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				report := collectStatus(ctx, app)
				if opts.JSON {
					return printJSON(cmd, report)
				}
				writeStatus(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
}

// writeSettings prints every setting with its key name.
func writeSettings(w io.Writer, s config.Settings) {
	for _, key := range config.Keys() {
		value, _ := config.GetKey(s, key)
		if value == "" {
			value = DimStyle.Render("(empty)")
		}
		fmt.Fprintf(w, "%s %s\n", RenderLabel(key), value)
	}
}
