// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/export"
	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/util"
)

// ArchiveFile is the file name used by "export --all".
const ArchiveFile = "ollachat-conversations.json"

func newExportCommand(opts *Options) *cobra.Command {
	var (
		format string
		outDir string
		all    bool
		stdout bool
	)
	cmd := &cobra.Command{
		Use:   "export [ref]",
		Short: "Write a conversation to a Markdown or JSON file",
		Example: `  $ ollachat export                 # active conversation as Markdown
  $ ollachat export 3 -f json -o ~/Downloads
  $ ollachat export --all           # every conversation as one JSON archive`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				if all {
					data, err := export.ExportAll(app.Conversations.Conversations(), app.Conversations.ActiveID())
					if err != nil {
						return err
					}
					if stdout {
						_, err = cmd.OutOrStdout().Write(append(data, '\n'))
						return err
					}
					p, err := export.Download(data, ArchiveFile, outDir)
					if err != nil {
						return NewCommandError("export", "write", outDir, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %d conversations to %s\n", app.Conversations.Len(), p)
					return nil
				}

				conv, err := resolveConversation(app, args)
				if err != nil {
					return err
				}
				eopts := export.DefaultOptions()
				eopts.OutputDir = outDir
				eopts.Model = app.Settings.Get().Model
				exp, err := export.ForFormat(format, eopts)
				if err != nil {
					return NewUsageError(err.Error(), "ollachat export -f json")
				}
				if stdout {
					data, err := exp.Export(conv)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				p, err := export.ExportToFile(conv, exp, eopts)
				if err != nil {
					return NewCommandError("export", "write", outDir, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", p)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown or json")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&all, "all", false, "export every conversation as one JSON archive")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write to stdout instead of a file")
	return cmd
}

func newImportCommand(opts *Options) *cobra.Command {
	var activate bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add conversations from an exported JSON file",
		Long: `Add conversations from a file written by "export -f json" or "export --all".
A conversation whose id already exists replaces the saved one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return NewCommandError("import", "read", args[0], err)
				}
				archive, err := export.ImportArchive(data)
				if err != nil {
					return &CommandError{Command: "import", Action: "parse", Reason: args[0], Code: ExitUsage, Err: err}
				}
				for _, c := range archive.Conversations {
					c.Title = util.TruncateRunes(c.Title, 200)
					app.Conversations.Add(c)
				}
				if activate {
					id := archive.CurrentConversationID
					if id == "" {
						id = archive.Conversations[0].ID
					}
					app.Conversations.SetActive(id)
				}
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d conversations\n", len(archive.Conversations))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activate, "activate", false, "make the imported active conversation the active one")
	return cmd
}

func newCopyCommand(opts *Options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "copy [ref]",
		Short: "Copy the last reply of a conversation to the clipboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				conv, err := resolveConversation(app, args)
				if err != nil {
					return err
				}
				text, err := copyText(conv, all)
				if err != nil {
					return err
				}
				if !export.NewClipboard(os.Stdout, app.Notifier).Copy(text) {
					return &CommandError{Command: "copy", Action: "write", Reason: "clipboard unavailable"}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "copy the whole conversation as Markdown")
	return cmd
}

func copyText(conv *model.Conversation, all bool) (string, error) {
	if all {
		data, err := export.NewMarkdownExporter(&export.Options{}).Export(conv)
		return string(data), err
	}
	msg, err := lastReply(conv)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}
