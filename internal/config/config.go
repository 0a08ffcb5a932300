// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ollachat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete on-disk configuration.
type Config struct {
	// Settings seeds the settings store on first run. Once a settings
	// snapshot has been persisted, that snapshot wins over this section.
	Settings Settings `toml:"settings"`

	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	UI        UIConfig        `toml:"ui"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "json" or "sqlite"
	Backend string `toml:"backend"`

	// Dir holds the snapshot files or database (default: <home>/data)
	Dir string `toml:"dir"`

	// AutosaveIntervalSecs is the minimum gap between autosaves.
	AutosaveIntervalSecs int `toml:"autosave_interval_secs"`
}

// LoggingConfig controls the rotated log file.
type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// UIConfig holds terminal presentation options.
type UIConfig struct {
	Markdown bool `toml:"markdown"`
	WordWrap int  `toml:"word_wrap"`
}

// Storage backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Settings: DefaultSettings(),
		Storage: StorageConfig{
			Backend:              BackendJSON,
			AutosaveIntervalSecs: 2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
		UI: UIConfig{
			Markdown: true,
			WordWrap: 80,
		},
	}
}

// fillDefaults fills values left empty by a partial file.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Settings.OllamaURL == "" {
		cfg.Settings.OllamaURL = defaults.Settings.OllamaURL
	}
	if cfg.Settings.Theme == "" {
		cfg.Settings.Theme = defaults.Settings.Theme
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Storage.AutosaveIntervalSecs <= 0 {
		cfg.Storage.AutosaveIntervalSecs = defaults.Storage.AutosaveIntervalSecs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
	}
	if cfg.UI.WordWrap <= 0 {
		cfg.UI.WordWrap = defaults.UI.WordWrap
	}
}

// resolvePaths fills directory defaults relative to the home directory.
func (c *Config) resolvePaths(home string) {
	if c.Storage.Dir == "" {
		c.Storage.Dir = filepath.Join(home, "data")
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(home, "logs", "ollachat.log")
	}
	if c.Telemetry.Dir == "" {
		c.Telemetry.Dir = filepath.Join(home, "logs")
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeDir returns the ollachat directory: $OLLACHAT_HOME or ~/.ollachat.
func HomeDir() (string, error) {
	if dir := os.Getenv("OLLACHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollachat"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file, falling back to built-in defaults
// when it does not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path. A missing file is not an error.
// Relative directory defaults are resolved against the file's directory.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg as TOML to path, atomically and owner-readable only.
func SaveTo(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ollachat configuration file\n")
	buf.WriteString("# Settings changed from inside the app are persisted separately.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the settings section and the ambient options.
func (c *Config) Validate() error {
	errs := Validate(c.Settings).Errors

	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: json, sqlite", c.Storage.Backend),
		})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OLLACHAT_OLLAMA_URL: overrides settings.ollama_url (OLLAMA_HOST is
//     used when it is unset)
//   - OLLACHAT_MODEL: overrides settings.model
//   - OLLACHAT_TEMPERATURE: overrides settings.temperature
//   - OLLACHAT_MAX_TOKENS: overrides settings.max_tokens
//   - OLLACHAT_SYSTEM_PROMPT: overrides settings.system_prompt
//   - OLLACHAT_STORAGE: overrides storage.backend
//   - OLLACHAT_LOG_LEVEL: overrides logging.level
//   - OLLACHAT_TELEMETRY: "1" or "true" enables telemetry
//
// Unparseable numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	c.Settings = c.Settings.Apply(EnvPatch())

	if backend := os.Getenv("OLLACHAT_STORAGE"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}

	if level := os.Getenv("OLLACHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}

	if tel := os.Getenv("OLLACHAT_TELEMETRY"); tel != "" {
		c.Telemetry.Enabled = tel == "1" || strings.ToLower(tel) == "true"
	}
}

// EnvPatch returns the settings overrides present in the environment. Saved
// settings are restored after the config file is read, so callers re-apply
// this patch on top of them.
func EnvPatch() SettingsPatch {
	var p SettingsPatch
	if url := os.Getenv("OLLACHAT_OLLAMA_URL"); url != "" {
		p.OllamaURL = &url
	} else if host := os.Getenv("OLLAMA_HOST"); host != "" {
		url := hostToURL(host)
		p.OllamaURL = &url
	}

	if model := os.Getenv("OLLACHAT_MODEL"); model != "" {
		p.Model = &model
	}

	if temp := os.Getenv("OLLACHAT_TEMPERATURE"); temp != "" {
		if f, err := strconv.ParseFloat(temp, 64); err == nil {
			p.Temperature = &f
		}
	}

	if tokens := os.Getenv("OLLACHAT_MAX_TOKENS"); tokens != "" {
		if n, err := strconv.Atoi(tokens); err == nil {
			p.MaxTokens = &n
		}
	}

	if prompt := os.Getenv("OLLACHAT_SYSTEM_PROMPT"); prompt != "" {
		p.SystemPrompt = &prompt
	}
	return p
}

// hostToURL turns an OLLAMA_HOST value ("0.0.0.0:11434", "gpu-box") into a
// base URL.
func hostToURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if !strings.Contains(host, ":") {
		host += ":11434"
	}
	return "http://" + host
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
