// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/ollachat/internal/util"
)

const sessionTimeLayout = "20060102-150405"

// =============================================================================
// USAGE STORAGE
// =============================================================================

// UsageStorage keeps one JSON file per finished session.
type UsageStorage struct {
	dir string
}

// NewUsageStorage creates the directory if needed.
func NewUsageStorage(dir string) (*UsageStorage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &UsageStorage{dir: dir}, nil
}

// Save writes a session atomically.
func (us *UsageStorage) Save(s *SessionUsage) error {
	if s == nil {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(filepath.Join(us.dir, s.ID+".json"), data, 0600)
}

// Load reads a session by ID.
func (us *UsageStorage) Load(id string) (*SessionUsage, error) {
	data, err := os.ReadFile(filepath.Join(us.dir, id+".json"))
	if err != nil {
		return nil, err
	}
	var s SessionUsage
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Models == nil {
		s.Models = make(map[string]*ModelUsage)
	}
	return &s, nil
}

// List returns the IDs of sessions started within [from, to], oldest first.
func (us *UsageStorage) List(from, to time.Time) ([]string, error) {
	entries, err := us.entries()
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, ts := range entries {
		if ts.Before(from) || ts.After(to) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteBefore removes sessions started before the given time.
func (us *UsageStorage) DeleteBefore(before time.Time) error {
	entries, err := us.entries()
	if err != nil {
		return err
	}
	for id, ts := range entries {
		if ts.Before(before) {
			_ = os.Remove(filepath.Join(us.dir, id+".json"))
		}
	}
	return nil
}

// Count returns the number of stored sessions.
func (us *UsageStorage) Count() (int, error) {
	entries, err := us.entries()
	return len(entries), err
}

// entries maps session IDs to their start time parsed from the file name.
// Files that do not follow the naming scheme are skipped.
func (us *UsageStorage) entries() (map[string]time.Time, error) {
	dirEntries, err := os.ReadDir(us.dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time)
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		ts, ok := parseSessionTime(id)
		if !ok {
			continue
		}
		out[id] = ts
	}
	return out, nil
}

func parseSessionTime(id string) (time.Time, bool) {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(sessionTimeLayout, parts[0]+"-"+parts[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
