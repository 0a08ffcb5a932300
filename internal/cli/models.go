// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/util"
)

func newModelsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"model"},
		Short:   "List installed models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				models, err := app.Client.ListModels(ctx)
				if err != nil {
					return err
				}
				if opts.JSON {
					return printJSON(cmd, models)
				}
				writeModelList(cmd.OutOrStdout(), models, app.Settings.Get().Model, time.Now())
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "select [name]",
		Short: "Choose the model used for new replies",
		Long: `Choose the model used for new replies. Without a name an interactive
picker opens; type / to filter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				models, err := app.Client.ListModels(ctx)
				if err != nil {
					return err
				}
				name := ""
				if len(args) == 1 {
					name = args[0]
				} else {
					if !IsTTY() || !isTerminal(cmd.OutOrStdout()) {
						return NewUsageError("no terminal for the picker; pass the model name", "ollachat models select llama3.2")
					}
					name, err = pickModel(models, app.Settings.Get().Model, cmd.InOrStdin(), cmd.OutOrStdout())
					if err != nil {
						return err
					}
					if name == "" {
						return nil
					}
				}
				if err := selectModel(app, models, name); err != nil {
					return err
				}
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", ActiveStyle.Render(name))
				return nil
			})
		},
	})
	return cmd
}

const modelNameWidth = 32

// writeModelList prints installed models in aligned columns, marking the
// selected one.
func writeModelList(w io.Writer, models []ollama.ModelInfo, current string, now time.Time) {
	if len(models) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No models installed. Pull one with: ollama pull llama3.2"))
		return
	}
	fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		SectionStyle.Render(util.PadRight("NAME", modelNameWidth)),
		SectionStyle.Render(util.PadRight("SIZE", 9)),
		SectionStyle.Render(util.PadRight("PARAMS", 8)),
		SectionStyle.Render("MODIFIED"))
	for _, m := range models {
		marker := "  "
		name := util.PadRight(m.Name, modelNameWidth)
		if m.Name == current {
			marker = ActiveStyle.Render("* ")
			name = ActiveStyle.Render(name)
		}
		modified := ""
		if !m.ModifiedAt.IsZero() {
			modified = humanize.RelTime(m.ModifiedAt, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%s%s  %s  %s  %s\n",
			marker,
			name,
			util.PadRight(m.FormatSize(), 9),
			util.PadRight(m.Details.ParameterSize, 8),
			DimStyle.Render(modified))
	}
}
