// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Settings and config file commands.
//
// Command: config [show|get|set|reset|validate|path|init]
//
// Settings (server URL, model, temperature, ...) live with the saved
// conversations; the config file seeds them on first run and holds the
// storage, logging, telemetry and display options.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollachat/internal/config"
)

func newConfigCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change settings.

Keys: ` + strings.Join(config.Keys(), ", "),
		Example: `  $ ollachat config set temperature 0.3
  $ ollachat config set ollama_url http://gpu-box:11434
  $ ollachat config get model`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				s := app.Settings.Get()
				if opts.JSON {
					return printJSON(cmd, s)
				}
				writeSettings(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				v, err := config.GetKey(app.Settings.Get(), args[0])
				if err != nil {
					return NewUsageError(err.Error(), "ollachat config get model")
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				if _, err := setSetting(app.Settings, args[0], strings.Join(args[1:], " ")); err != nil {
					return err
				}
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Updated"), args[0])
				return nil
			})
		},
	}

	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				ok, err := confirmer(yes)("Reset all settings to their defaults?")
				if err != nil || !ok {
					return err
				}
				app.Settings.Reset()
				if err := app.Session.Save(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Settings reset"))
				return nil
			})
		},
	}
	reset.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a config file (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(opts, args)
			if err != nil {
				return err
			}
			if _, err := config.LoadFrom(path); err != nil {
				return &CommandError{Command: "config", Action: "validate", Reason: path, Code: ExitConfig, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", RenderStatus(true), path)
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configPath(opts, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configPath(opts, nil)
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil && !force {
				return &CommandError{Command: "config", Action: "init", Reason: p + " exists (use --force to overwrite)", Code: ExitUsage}
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return NewCommandError("config", "init", p, err)
			}
			if err := config.SaveTo(config.Default(), p); err != nil {
				return NewCommandError("config", "init", p, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, get, set, reset, validate, path, initCmd)
	return cmd
}

// configPath returns args[0], the --config flag or the default location.
func configPath(opts *Options, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	p, err := config.Path()
	if err != nil {
		return "", &CommandError{Command: "config", Action: "locate", Reason: "no home directory", Code: ExitConfig, Err: err}
	}
	return p, nil
}
