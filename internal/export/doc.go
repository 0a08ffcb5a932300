// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations out of the application: to files in
// Markdown or JSON, and to the clipboard.
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", export.DefaultOptions())
//	path, err := export.ExportToFile(conv, exp, nil)
//
// Copy a reply:
//
//	export.NewClipboard(os.Stdout, notifier).Copy(msg.Content)
package export
