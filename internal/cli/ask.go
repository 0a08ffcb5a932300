// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command.
//
// Command: ask [question]
//
// Examples:
//   ollachat ask "What is the capital of France?"
//   git diff | ollachat ask "Review this change:"
//   ollachat ask --save "Explain channels"      Keep it as a conversation
//   ollachat ask --json "Summarize RFC 2616"

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/telemetry"
)

// maxStdinPrompt caps how much piped input is appended to a question.
const maxStdinPrompt = 1 << 20

type askFlags struct {
	system string
	save   bool
}

// AskResult is the --json output of ask.
type AskResult struct {
	Model      string        `json:"model"`
	Response   string        `json:"response"`
	Chunks     int           `json:"chunks"`
	FirstChunk time.Duration `json:"first_chunk_ns"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

func newAskCommand(opts *Options) *cobra.Command {
	var flags askFlags
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and stream the answer",
		Long: `Ask a single question and stream the answer. Piped input is appended to
the question. Without --save nothing is added to the conversation list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				prompt, err := askPrompt(args, cmd.InOrStdin())
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
				defer stop()
				if flags.save {
					return askInConversation(ctx, cmd, app, prompt, opts.JSON)
				}
				return askOnce(ctx, cmd, app, prompt, flags.system, opts.JSON)
			})
		},
	}
	cmd.Flags().StringVarP(&flags.system, "system", "s", "", "system prompt for this question (default: the saved one)")
	cmd.Flags().BoolVar(&flags.save, "save", false, "ask in the active conversation and keep the exchange")
	return cmd
}

// askPrompt joins args and appends piped stdin.
func askPrompt(args []string, in io.Reader) (string, error) {
	prompt := strings.Join(args, " ")
	if f, ok := in.(*os.File); !ok || !isTerminal(f) {
		data, err := io.ReadAll(io.LimitReader(in, maxStdinPrompt))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if piped := strings.TrimSpace(string(data)); piped != "" {
			if prompt != "" {
				prompt += "\n\n"
			}
			prompt += piped
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return "", NewUsageError("no question given", `ollachat ask "What is a goroutine?"`)
	}
	return prompt, nil
}

// askOnce streams a generate-mode answer without touching conversations.
func askOnce(ctx context.Context, cmd *cobra.Command, app *App, prompt, system string, jsonMode bool) error {
	modelName, err := app.Model(ctx)
	if err != nil {
		return err
	}
	settings := app.Settings.Get()
	if system == "" {
		system = settings.SystemPrompt
	}

	stream, err := app.Client.OpenGenerate(ctx, prompt, modelName, &ollama.RequestOptions{
		SystemPrompt: system,
		Options:      ollama.NewGenerationOptions(settings.Temperature, settings.MaxTokens),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var sb strings.Builder
	err = stream.Each(ollama.Handlers{
		OnChunk: func(text string) {
			sb.WriteString(text)
			if !jsonMode {
				fmt.Fprint(out, text)
			}
		},
	})

	app.Usage.RecordStream(telemetry.StreamStats{
		Model:      modelName,
		Mode:       stream.Mode().String(),
		Prompt:     prompt,
		Chunks:     stream.Chunks(),
		Characters: len([]rune(sb.String())),
		FirstChunk: stream.TimeToFirstChunk(),
		Duration:   stream.Elapsed(),
		Err:        err,
	})
	if err != nil {
		if !jsonMode && stream.Started() {
			fmt.Fprintln(out)
		}
		return err
	}

	if jsonMode {
		return printJSON(cmd, AskResult{
			Model:      modelName,
			Response:   sb.String(),
			Chunks:     stream.Chunks(),
			FirstChunk: stream.TimeToFirstChunk(),
			Elapsed:    stream.Elapsed(),
		})
	}
	fmt.Fprintln(out)
	return nil
}

// askInConversation sends prompt through the session so it is kept.
func askInConversation(ctx context.Context, cmd *cobra.Command, app *App, prompt string, jsonMode bool) error {
	modelName, err := app.Model(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	reply, err := app.Session.Submit(ctx, prompt, ollama.Handlers{
		OnChunk: func(text string) {
			if !jsonMode {
				fmt.Fprint(out, text)
			}
		},
	})
	if saveErr := app.Session.Save(context.WithoutCancel(ctx)); saveErr != nil && err == nil {
		err = saveErr
	}
	if err != nil {
		return err
	}
	if jsonMode {
		return printJSON(cmd, AskResult{Model: modelName, Response: reply.Content, Chunks: reply.Chunks, Elapsed: reply.Elapsed})
	}
	fmt.Fprintln(out)
	return nil
}
