// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations, the active conversation and the
// settings between runs.
//
// # Key Types
//
//   - Backend: load/save interface implemented by both backends
//   - Snapshot: the persisted state
//   - JSONBackend: conversations.json and settings.json, atomic writes
//   - SQLiteBackend: one SQLite database (pure Go driver)
//
// # Usage
//
//	backend, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir)
//	snap, err := backend.Load(ctx)
//	if errors.Is(err, storage.ErrNoSnapshot) {
//	    // first run
//	}
//
// # Storage Location
//
// Data lives in ~/.ollachat/data/ unless [storage] dir is set.
package storage
