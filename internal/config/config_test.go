// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OLLACHAT_OLLAMA_URL", "OLLAMA_HOST", "OLLACHAT_MODEL", "OLLACHAT_TEMPERATURE",
		"OLLACHAT_MAX_TOKENS", "OLLACHAT_SYSTEM_PROMPT", "OLLACHAT_STORAGE",
		"OLLACHAT_LOG_LEVEL", "OLLACHAT_TELEMETRY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), cfg.Settings)
	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.Dir)
	assert.Equal(t, filepath.Join(dir, "logs", "ollachat.log"), cfg.Logging.File)
}

func TestLoadFrom_PartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[settings]
model = "llama3"
temperature = 1.1

[storage]
backend = "sqlite"
`), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Settings.Model)
	assert.Equal(t, 1.1, cfg.Settings.Temperature)
	assert.Equal(t, 2048, cfg.Settings.MaxTokens, "unset keys keep their defaults")
	assert.Equal(t, "http://localhost:11434", cfg.Settings.OllamaURL)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
}

func TestLoadFrom_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[settings\nmodel ="), 0600))
	_, err := LoadFrom(bad)
	assert.Error(t, err)

	outOfRange := filepath.Join(dir, "range.toml")
	require.NoError(t, os.WriteFile(outOfRange, []byte("[settings]\nmax_tokens = 99999\n"), 0600))
	_, err = LoadFrom(outOfRange)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")

	backend := filepath.Join(dir, "backend.toml")
	require.NoError(t, os.WriteFile(backend, []byte("[storage]\nbackend = \"redis\"\n"), 0600))
	_, err = LoadFrom(backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestSaveToLoadFrom(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Settings.Model = "mistral"
	cfg.Settings.SystemPrompt = "Be brief."
	cfg.Logging.Level = "debug"
	require.NoError(t, SaveTo(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Settings, loaded.Settings)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLACHAT_OLLAMA_URL", "http://gpu:11434")
	t.Setenv("OLLACHAT_MODEL", "qwen2")
	t.Setenv("OLLACHAT_TEMPERATURE", "0.2")
	t.Setenv("OLLACHAT_MAX_TOKENS", "notanumber")
	t.Setenv("OLLACHAT_STORAGE", "SQLite")
	t.Setenv("OLLACHAT_TELEMETRY", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://gpu:11434", cfg.Settings.OllamaURL)
	assert.Equal(t, "qwen2", cfg.Settings.Model)
	assert.Equal(t, 0.2, cfg.Settings.Temperature)
	assert.Equal(t, 2048, cfg.Settings.MaxTokens, "unparseable numbers are ignored")
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestApplyEnvOverrides_OllamaHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"0.0.0.0:11434", "http://0.0.0.0:11434"},
		{"gpu-box", "http://gpu-box:11434"},
		{"https://ollama.internal", "https://ollama.internal"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OLLAMA_HOST", tt.host)
			cfg := Default()
			cfg.ApplyEnvOverrides()
			assert.Equal(t, tt.want, cfg.Settings.OllamaURL)
		})
	}
}

func TestEnvPatch(t *testing.T) {
	clearEnv(t)
	assert.True(t, EnvPatch().IsEmpty())

	t.Setenv("OLLACHAT_MODEL", "mistral")
	t.Setenv("OLLACHAT_MAX_TOKENS", "512")
	p := EnvPatch()
	require.NotNil(t, p.Model)
	require.NotNil(t, p.MaxTokens)
	assert.Equal(t, "mistral", *p.Model)
	assert.Equal(t, 512, *p.MaxTokens)
	assert.Nil(t, p.OllamaURL)
	assert.Nil(t, p.Temperature)
}

func TestHomeDirAndPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OLLACHAT_HOME", dir)

	home, err := HomeDir()
	require.NoError(t, err)
	assert.Equal(t, dir, home)

	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), p)
}
