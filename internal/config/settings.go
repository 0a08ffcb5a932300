// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/muesli/termenv"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Theme is the color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Range limits enforced by Validate.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 8192
)

// Settings is the connection and generation configuration the streaming
// client reads. JSON names match the persisted settings object.
type Settings struct {
	OllamaURL    string  `toml:"ollama_url" json:"ollamaUrl"`
	Model        string  `toml:"model" json:"selectedModel"`
	Temperature  float64 `toml:"temperature" json:"temperature"`
	MaxTokens    int     `toml:"max_tokens" json:"maxTokens"`
	SystemPrompt string  `toml:"system_prompt" json:"systemPrompt"`
	AutoSave     bool    `toml:"auto_save" json:"autoSave"`
	Theme        Theme   `toml:"theme" json:"theme"`
}

// DefaultSettings returns the settings a fresh install starts with. The
// model is left empty so the first installed model is picked.
func DefaultSettings() Settings {
	return Settings{
		OllamaURL:    "http://localhost:11434",
		Model:        "",
		Temperature:  0.7,
		MaxTokens:    2048,
		SystemPrompt: "You are a helpful AI assistant.",
		AutoSave:     true,
		Theme:        ThemeSystem,
	}
}

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	OllamaURL    *string
	Model        *string
	Temperature  *float64
	MaxTokens    *int
	SystemPrompt *string
	AutoSave     *bool
	Theme        *Theme
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.OllamaURL == nil && p.Model == nil && p.Temperature == nil &&
		p.MaxTokens == nil && p.SystemPrompt == nil && p.AutoSave == nil && p.Theme == nil
}

// Apply returns s with the fields present in p merged in. s is not modified.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.OllamaURL != nil {
		s.OllamaURL = *p.OllamaURL
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.SystemPrompt != nil {
		s.SystemPrompt = *p.SystemPrompt
	}
	if p.AutoSave != nil {
		s.AutoSave = *p.AutoSave
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	return s
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether a violation for field is present.
func (e ValidateErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ValidationResult lists the violated rules; an empty list means valid.
type ValidationResult struct {
	Errors ValidateErrors
}

// IsValid reports whether no rule was violated.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Err returns the violations as an error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	return r.Errors
}

var urlPattern = regexp.MustCompile(`^https?://.+`)

// Validate checks every field of s. It never modifies anything.
func Validate(s Settings) ValidationResult {
	return ValidatePatch(SettingsPatch{
		OllamaURL:   &s.OllamaURL,
		Temperature: &s.Temperature,
		MaxTokens:   &s.MaxTokens,
		Theme:       &s.Theme,
	})
}

// ValidatePatch checks only the fields present in p.
func ValidatePatch(p SettingsPatch) ValidationResult {
	var errs ValidateErrors

	if p.OllamaURL != nil && !urlPattern.MatchString(*p.OllamaURL) {
		errs = append(errs, ValidationError{
			Field:   "ollama_url",
			Message: fmt.Sprintf("invalid URL %q, must start with http:// or https://", *p.OllamaURL),
		})
	}

	if p.Temperature != nil {
		t := *p.Temperature
		if math.IsNaN(t) || t < MinTemperature || t > MaxTemperature {
			errs = append(errs, ValidationError{
				Field:   "temperature",
				Message: fmt.Sprintf("must be between %g and %g, got %g", MinTemperature, MaxTemperature, t),
			})
		}
	}

	if p.MaxTokens != nil && (*p.MaxTokens < MinMaxTokens || *p.MaxTokens > MaxMaxTokens) {
		errs = append(errs, ValidationError{
			Field:   "max_tokens",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinMaxTokens, MaxMaxTokens, *p.MaxTokens),
		})
	}

	if p.Theme != nil && !p.Theme.Valid() {
		errs = append(errs, ValidationError{
			Field:   "theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: light, dark, system", *p.Theme),
		})
	}

	return ValidationResult{Errors: errs}
}

// =============================================================================
// THEME RESOLUTION
// =============================================================================

// ResolveTheme maps ThemeSystem to light or dark from the terminal's
// background; explicit themes are returned unchanged.
func ResolveTheme(t Theme) Theme {
	if t != ThemeSystem {
		return t
	}
	if termenv.HasDarkBackground() {
		return ThemeDark
	}
	return ThemeLight
}
