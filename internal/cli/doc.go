// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the terminal front end: an interactive chat REPL plus
// commands for models, conversations, settings, export and usage.
//
// # Usage
//
//	os.Exit(cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
//
// Every command builds an App (config, logger, stores, client, storage
// backend and session manager), runs, and closes it, which saves unsaved
// changes. Errors are displayed once by Execute and mapped to exit codes.
package cli
