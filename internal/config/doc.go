// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides the settings store and validator, and the
// configuration file that seeds them.
//
// # Key Types
//
//   - Settings: connection and generation options read by the client
//   - Store: owned, validated settings state with change listeners
//   - Config: the on-disk TOML file (settings seed, storage, logging)
//   - Watcher: reloads the settings section when the file changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OLLACHAT_*, OLLAMA_HOST)
//   - ~/.ollachat/config.toml (or $OLLACHAT_HOME/config.toml)
//   - Built-in defaults
//
// # Validation
//
// Every write through Store is validated against the merged result. An
// invalid patch is rejected as a whole and the store keeps its previous
// value:
//
//	store := config.NewStore(config.DefaultSettings())
//	temp := 3.0
//	if _, err := store.Update(config.SettingsPatch{Temperature: &temp}); err != nil {
//	    // err is a config.ValidateErrors naming "temperature"
//	}
package config
