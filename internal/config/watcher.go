// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/ollachat/internal/notify"
)

// DefaultWatchDebounce coalesces the burst of events an editor save emits.
const DefaultWatchDebounce = 250 * time.Millisecond

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// Watcher reloads the config file when it changes and pushes its settings
// section into a Store. A file that fails to parse or validate leaves the
// store unchanged and is reported through the notifier.
type Watcher struct {
	path     string
	store    *Store
	notifier notify.Notifier
	logger   *zap.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	reloads int

	// reloadMu serializes reloads and lets Close wait out one in flight.
	reloadMu sync.Mutex
}

// NewWatcher creates a watcher for the config file at path. The parent
// directory is watched so atomic rename-on-save is seen.
func NewWatcher(path string, store *Store, n notify.Notifier, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		notifier: n,
		logger:   logger.Named("config-watcher"),
		debounce: DefaultWatchDebounce,
		watcher:  fw,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SetDebounce changes the debounce interval. Call before Watch.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Watch starts processing file events in the background.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Reloads returns how many reloads have been attempted.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.reloadMu.Lock()
	w.reloadMu.Unlock()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	cfg, err := LoadFrom(w.path)
	if err != nil {
		w.logger.Warn("config reload rejected", zap.String("path", w.path), zap.Error(err))
		notify.Error(w.notifier, "Config file not applied", err)
		return
	}
	if err := w.store.Replace(cfg.Settings); err != nil {
		notify.Error(w.notifier, "Config file not applied", err)
		return
	}
	w.logger.Info("config reloaded", zap.String("path", w.path))
}
