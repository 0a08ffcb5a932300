// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across ollachat.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement (temp file, fsync, rename)
//   - TruncateRunes: UTF-8 safe truncation with an ellipsis
//   - DisplayWidth / PadRight: terminal column math for tables
//
// # Usage
//
//	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
//	    return err
//	}
//	fmt.Println(util.PadRight(title, 32), util.TruncateRunes(preview, 40))
package util
