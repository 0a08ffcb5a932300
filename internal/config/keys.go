// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// KEY/VALUE ACCESS
// =============================================================================

// Keys lists the settings names accepted by SetKey and GetKey.
func Keys() []string {
	return []string{"ollama_url", "model", "temperature", "max_tokens", "system_prompt", "auto_save", "theme"}
}

// normalizeKey accepts snake_case, kebab-case and the camelCase JSON names.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "-", "_")
	switch key {
	case "ollamaurl", "url", "endpoint":
		return "ollama_url"
	case "selectedmodel", "selected_model":
		return "model"
	case "maxtokens", "num_predict":
		return "max_tokens"
	case "systemprompt", "system":
		return "system_prompt"
	case "autosave":
		return "auto_save"
	}
	return key
}

// SetKey parses value for the named setting into p.
func SetKey(p *SettingsPatch, key, value string) error {
	switch normalizeKey(key) {
	case "ollama_url":
		p.OllamaURL = &value
	case "model":
		p.Model = &value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %v", err)
		}
		p.Temperature = &f
	case "max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %v", err)
		}
		p.MaxTokens = &n
	case "system_prompt":
		p.SystemPrompt = &value
	case "auto_save":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %v", err)
		}
		p.AutoSave = &b
	case "theme":
		t := Theme(strings.ToLower(value))
		p.Theme = &t
	default:
		return fmt.Errorf("unknown setting: %s (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// GetKey returns the named setting formatted for display.
func GetKey(s Settings, key string) (string, error) {
	switch normalizeKey(key) {
	case "ollama_url":
		return s.OllamaURL, nil
	case "model":
		return s.Model, nil
	case "temperature":
		return strconv.FormatFloat(s.Temperature, 'g', -1, 64), nil
	case "max_tokens":
		return strconv.Itoa(s.MaxTokens), nil
	case "system_prompt":
		return s.SystemPrompt, nil
	case "auto_save":
		return strconv.FormatBool(s.AutoSave), nil
	case "theme":
		return string(s.Theme), nil
	}
	return "", fmt.Errorf("unknown setting: %s (valid: %s)", key, strings.Join(Keys(), ", "))
}
