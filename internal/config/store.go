// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"sync"
)

// =============================================================================
// SETTINGS STORE
// =============================================================================

// Store holds the current settings. Every committing call validates the
// result first and leaves the store untouched when it is invalid, so the
// held settings are never partially invalid.
type Store struct {
	mu       sync.RWMutex
	settings Settings

	listenerMu sync.Mutex
	listeners  []func(old, new Settings)
}

// NewStore creates a store holding initial as-is. Callers loading persisted
// settings should validate them first or use RestoreUnchecked.
func NewStore(initial Settings) *Store {
	return &Store{settings: initial}
}

// OnChange registers fn to run after each committed change, outside the lock.
func (s *Store) OnChange(fn func(old, new Settings)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update merges p into the current settings. When the merged settings fail
// validation the violations are returned as ValidateErrors and nothing
// changes.
func (s *Store) Update(p SettingsPatch) (Settings, error) {
	s.mu.Lock()
	old := s.settings
	next := old.Apply(p)
	if res := Validate(next); !res.IsValid() {
		s.mu.Unlock()
		return old, res.Errors
	}
	s.settings = next
	s.mu.Unlock()

	s.notify(old, next)
	return next, nil
}

// Replace swaps in next wholesale after validating it.
func (s *Store) Replace(next Settings) error {
	if res := Validate(next); !res.IsValid() {
		return res.Errors
	}

	s.mu.Lock()
	old := s.settings
	s.settings = next
	s.mu.Unlock()

	s.notify(old, next)
	return nil
}

// Reset restores DefaultSettings and returns them.
func (s *Store) Reset() Settings {
	defaults := DefaultSettings()

	s.mu.Lock()
	old := s.settings
	s.settings = defaults
	s.mu.Unlock()

	s.notify(old, defaults)
	return defaults
}

// RestoreUnchecked installs persisted settings without validation and
// returns the validation result so the caller can report problems. It is
// the only path that can commit invalid settings.
func (s *Store) RestoreUnchecked(next Settings) ValidationResult {
	s.mu.Lock()
	old := s.settings
	s.settings = next
	s.mu.Unlock()

	s.notify(old, next)
	return Validate(next)
}

func (s *Store) notify(old, next Settings) {
	if old == next {
		return
	}
	s.listenerMu.Lock()
	listeners := make([]func(old, new Settings), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(old, next)
	}
}
