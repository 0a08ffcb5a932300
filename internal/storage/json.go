// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/util"
)

// File names inside the data directory.
const (
	ConversationsFile = "conversations.json"
	SettingsFile      = "settings.json"
)

// conversationsDoc is the layout of conversations.json.
type conversationsDoc struct {
	Conversations         []*model.Conversation `json:"conversations"`
	CurrentConversationID string                `json:"currentConversationId"`
	SavedAt               time.Time             `json:"savedAt"`
}

// settingsDoc is the layout of settings.json.
type settingsDoc struct {
	Settings config.Settings `json:"settings"`
}

// =============================================================================
// JSON BACKEND
// =============================================================================

// JSONBackend keeps conversations and settings in two JSON files, each
// replaced atomically on save.
type JSONBackend struct {
	dir string
	mu  sync.Mutex
}

// NewJSONBackend creates the data directory if needed.
func NewJSONBackend(dir string) (*JSONBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, wrap("open", dir, err)
	}
	return &JSONBackend{dir: dir}, nil
}

// Location implements Backend.
func (b *JSONBackend) Location() string {
	return b.dir
}

// Load implements Backend. A missing settings file leaves Settings nil; a
// missing conversations file yields an empty list. When neither exists the
// result is ErrNoSnapshot.
func (b *JSONBackend) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := &Snapshot{Conversations: make([]*model.Conversation, 0)}
	found := false

	convPath := filepath.Join(b.dir, ConversationsFile)
	data, err := os.ReadFile(convPath)
	switch {
	case err == nil:
		var doc conversationsDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, wrap("load", convPath, err)
		}
		for _, c := range doc.Conversations {
			if c == nil {
				continue
			}
			if c.Messages == nil {
				c.Messages = make([]*model.Message, 0)
			}
			snap.Conversations = append(snap.Conversations, c)
		}
		snap.ActiveID = doc.CurrentConversationID
		snap.SavedAt = doc.SavedAt
		found = true
	case !errors.Is(err, os.ErrNotExist):
		return nil, wrap("load", convPath, err)
	}

	settingsPath := filepath.Join(b.dir, SettingsFile)
	data, err = os.ReadFile(settingsPath)
	switch {
	case err == nil:
		// Decode over defaults so keys missing from older files keep sane
		// values.
		doc := settingsDoc{Settings: config.DefaultSettings()}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, wrap("load", settingsPath, err)
		}
		snap.Settings = &doc.Settings
		found = true
	case !errors.Is(err, os.ErrNotExist):
		return nil, wrap("load", settingsPath, err)
	}

	if !found {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Save implements Backend. Settings are written only when present.
func (b *JSONBackend) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	convs := snap.Conversations
	if convs == nil {
		convs = make([]*model.Conversation, 0)
	}

	convPath := filepath.Join(b.dir, ConversationsFile)
	data, err := json.MarshalIndent(conversationsDoc{
		Conversations:         convs,
		CurrentConversationID: snap.ActiveID,
		SavedAt:               savedAt,
	}, "", "  ")
	if err != nil {
		return wrap("save", convPath, err)
	}
	if err := util.AtomicWriteFileWithDir(convPath, data, 0600, 0700); err != nil {
		return wrap("save", convPath, err)
	}

	if snap.Settings == nil {
		return nil
	}
	settingsPath := filepath.Join(b.dir, SettingsFile)
	data, err = json.MarshalIndent(settingsDoc{Settings: *snap.Settings}, "", "  ")
	if err != nil {
		return wrap("save", settingsPath, err)
	}
	return wrap("save", settingsPath, util.AtomicWriteFileWithDir(settingsPath, data, 0600, 0700))
}

// Close implements Backend.
func (b *JSONBackend) Close() error {
	return nil
}
