// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/model"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is everything persisted between runs: the conversation list,
// which one is active, and the user's settings.
type Snapshot struct {
	Conversations []*model.Conversation
	ActiveID      string

	// Settings is nil when none were saved yet.
	Settings *config.Settings

	SavedAt time.Time
}

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend persists snapshots locally.
type Backend interface {
	// Load returns the last saved snapshot, or ErrNoSnapshot on first run.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot with snap.
	Save(ctx context.Context, snap *Snapshot) error

	// Location describes where data lives, for display.
	Location() string

	// Close releases resources.
	Close() error
}

// Open creates the backend named by kind ("json" or "sqlite") rooted at dir.
func Open(kind, dir string) (Backend, error) {
	switch kind {
	case config.BackendJSON, "":
		return NewJSONBackend(dir)
	case config.BackendSQLite:
		return NewSQLiteBackend(dir)
	}
	return nil, fmt.Errorf("unknown storage backend %q", kind)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
// Use errors.Is(err, ErrNoSnapshot) to check for this error.
var ErrNoSnapshot = errors.New("no saved data")

// StorageError wraps a failed persistence operation with where it happened.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Path: path, Err: err}
}
