// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/model"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "ollachat.db"

// Schema creates the tables used by SQLiteBackend.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	position   INTEGER NOT NULL,
	title      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, position);

CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// kv keys.
const (
	keyActiveID = "active_conversation_id"
	keySettings = "settings"
	keySavedAt  = "saved_at"
)

// =============================================================================
// SQLITE BACKEND
// =============================================================================

// SQLiteBackend stores the snapshot in a single SQLite database. Each save
// rewrites the tables inside one transaction.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// NewSQLiteBackend opens (or creates) dir/ollachat.db.
func NewSQLiteBackend(dir string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, wrap("open", dir, err)
	}
	path := filepath.Join(dir, DatabaseFile)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", path, err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, wrap("open", path, fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, wrap("open", path, fmt.Errorf("failed to initialize schema: %w", err))
	}

	return &SQLiteBackend{db: db, path: path}, nil
}

// Location implements Backend.
func (b *SQLiteBackend) Location() string {
	return b.path
}

// Load implements Backend.
func (b *SQLiteBackend) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Conversations: make([]*model.Conversation, 0)}

	kv, err := b.loadKV(ctx)
	if err != nil {
		return nil, wrap("load", b.path, err)
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations ORDER BY position`)
	if err != nil {
		return nil, wrap("load", b.path, err)
	}
	byID := make(map[string]*model.Conversation)
	for rows.Next() {
		var (
			c                  model.Conversation
			created, updatedAt int64
		)
		if err := rows.Scan(&c.ID, &c.Title, &created, &updatedAt); err != nil {
			rows.Close()
			return nil, wrap("load", b.path, err)
		}
		c.CreatedAt = time.Unix(0, created)
		c.UpdatedAt = time.Unix(0, updatedAt)
		c.Messages = make([]*model.Message, 0)
		snap.Conversations = append(snap.Conversations, &c)
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrap("load", b.path, err)
	}
	rows.Close()

	rows, err = b.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, timestamp FROM messages ORDER BY conversation_id, position`)
	if err != nil {
		return nil, wrap("load", b.path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m      model.Message
			convID string
			role   string
			ts     int64
		)
		if err := rows.Scan(&m.ID, &convID, &role, &m.Content, &ts); err != nil {
			return nil, wrap("load", b.path, err)
		}
		m.Role = model.Role(role)
		m.Timestamp = time.Unix(0, ts)
		if c, ok := byID[convID]; ok {
			c.Messages = append(c.Messages, &m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("load", b.path, err)
	}

	if raw, ok := kv[keySettings]; ok {
		s := config.DefaultSettings()
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, wrap("load", b.path, fmt.Errorf("settings: %w", err))
		}
		snap.Settings = &s
	}
	snap.ActiveID = kv[keyActiveID]
	if raw, ok := kv[keySavedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			snap.SavedAt = t
		}
	}

	if len(snap.Conversations) == 0 && len(kv) == 0 {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func (b *SQLiteBackend) loadKV(ctx context.Context) (map[string]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		kv[k] = v
	}
	return kv, rows.Err()
}

// Save implements Backend.
func (b *SQLiteBackend) Save(ctx context.Context, snap *Snapshot) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("save", b.path, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			err = wrap("save", b.path, err)
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return err
	}

	convStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO conversations (id, position, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer convStmt.Close()
	msgStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (id, conversation_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer msgStmt.Close()

	for i, c := range snap.Conversations {
		if c == nil {
			continue
		}
		if _, err = convStmt.ExecContext(ctx, c.ID, i, c.Title, c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano()); err != nil {
			return err
		}
		for j, m := range c.Messages {
			if m == nil {
				continue
			}
			if _, err = msgStmt.ExecContext(ctx, m.ID, c.ID, j, string(m.Role), m.Content, m.Timestamp.UnixNano()); err != nil {
				return err
			}
		}
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	if err = putKV(ctx, tx, keyActiveID, snap.ActiveID); err != nil {
		return err
	}
	if err = putKV(ctx, tx, keySavedAt, savedAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}
	if snap.Settings != nil {
		var raw []byte
		if raw, err = json.Marshal(snap.Settings); err != nil {
			return err
		}
		if err = putKV(ctx, tx, keySettings, string(raw)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func putKV(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return wrap("close", b.path, err)
	}
	return nil
}
