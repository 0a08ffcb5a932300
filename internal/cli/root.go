// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// closeTimeout bounds the final save and telemetry flush on exit.
const closeTimeout = 10 * time.Second

// NewRootCommand builds the command tree. Command output goes to the
// command's out/err writers so tests can capture it.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:     "ollachat",
		Short:   "Chat with models served by a local Ollama",
		Version: Version,
		Long: `A terminal chat client for a local Ollama server. Replies stream in as the
model generates them; conversations and settings are saved between runs.`,
		Example: `  # Start an interactive chat
  $ ollachat

  # One-shot question
  $ ollachat ask "What is a goroutine?"

  # List installed models and pick one
  $ ollachat models
  $ ollachat models select

  # Point at another server
  $ ollachat config set ollama_url http://gpu-box:11434`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureColors(cmd.OutOrStdout(), opts.NoColor)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, chatFlags{})
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf("ollachat version %s (commit %s, built %s)\n", Version, GitCommit, BuildDate))

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default $OLLACHAT_HOME/config.toml)")
	flags.StringVar(&opts.URL, "url", "", "Ollama base URL for this run")
	flags.StringVarP(&opts.Model, "model", "m", "", "model for this run")
	flags.StringVar(&opts.Storage, "storage", "", "storage backend: json or sqlite")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	flags.BoolVar(&opts.JSON, "json", false, "JSON output where supported")

	root.AddCommand(
		newChatCommand(opts),
		newAskCommand(opts),
		newModelsCommand(opts),
		newPingCommand(opts),
		newConversationsCommand(opts),
		newConfigCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newCopyCommand(opts),
		newUsageCommand(opts),
		newStatusCommand(opts),
		newDoctorCommand(opts),
	)
	return root
}

// Execute runs the command tree with args and returns the exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		jsonMode, _ := root.PersistentFlags().GetBool("json")
		name := root.Name()
		if cmd != nil {
			name = cmd.Name()
		}
		DisplayError(stderr, name, err, jsonMode)
		if isFlagError(err) {
			return ExitUsage
		}
	}
	return ExitCode(err)
}

// isFlagError reports cobra's own argument and flag errors, which are
// plain errors rather than typed ones.
func isFlagError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand", "accepts ", "requires at least", "invalid argument", "flag needs"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// withApp builds the App for cmd, runs fn and closes the App again.
func withApp(cmd *cobra.Command, opts *Options, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := app.Close(closeCtx); err != nil && runErr == nil {
		runErr = NewCommandError(cmd.Name(), "close", "saving state", err)
	}
	return runErr
}

// printJSON writes data as a JSON response for command.
func printJSON(cmd *cobra.Command, data interface{}) error {
	return NewJSONResponse(cmd.CommandPath(), data).Write(cmd.OutOrStdout())
}
