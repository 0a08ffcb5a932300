// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/telemetry"
	"github.com/jeranaias/ollachat/internal/util"
)

func newUsageCommand(opts *Options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show how many replies were streamed, per day and per model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return NewUsageError("--days must be at least 1", "ollachat usage --days 30")
			}
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				trends := app.Usage.Trends(days)
				if opts.JSON {
					return printJSON(cmd, trends)
				}
				writeUsage(cmd.OutOrStdout(), trends)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "number of days to include")
	return cmd
}

func writeUsage(w io.Writer, t *telemetry.UsageTrends) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Usage, last %d days", t.Days)))
	fmt.Fprintf(w, "%s %d\n", RenderLabel("Sessions:"), t.Sessions)
	fmt.Fprintf(w, "%s %d (%d failed)\n", RenderLabel("Replies:"), t.Streams, t.Failures)
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Characters:"), humanize.Comma(int64(t.Characters)))

	if len(t.DailyBreakdown) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SectionStyle.Render("By day"))
		for _, d := range t.DailyBreakdown {
			fmt.Fprintf(w, "  %s  %4d replies  %s chars\n", d.Date.Format("Mon Jan 02"), d.Streams, humanize.Comma(int64(d.Characters)))
		}
	}

	if len(t.ModelBreakdown) > 0 {
		names := make([]string, 0, len(t.ModelBreakdown))
		for name := range t.ModelBreakdown {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w)
		fmt.Fprintln(w, SectionStyle.Render("By model"))
		for _, name := range names {
			m := t.ModelBreakdown[name]
			fmt.Fprintf(w, "  %s  %4d replies  %s chars\n", util.PadRight(name, modelNameWidth), m.Streams, humanize.Comma(int64(m.Characters)))
		}
	}
}
