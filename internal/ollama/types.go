// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/ollachat/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is a chat message as sent on the wire: role and content only.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationOptions are the sampling overrides forwarded to the backend.
// Nil fields are omitted from the request.
type GenerationOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// NewGenerationOptions builds options carrying both overrides.
func NewGenerationOptions(temperature float64, maxTokens int) *GenerationOptions {
	return &GenerationOptions{Temperature: &temperature, NumPredict: &maxTokens}
}

// IsZero reports whether no override is set.
func (o *GenerationOptions) IsZero() bool {
	return o == nil || (o.Temperature == nil && o.NumPredict == nil)
}

// RequestOptions are the optional parts of a streaming request.
type RequestOptions struct {
	// SystemPrompt is sent as "system" when non-empty.
	SystemPrompt string

	// Options is sent as "options" when it carries at least one override.
	Options *GenerationOptions
}

// GenerateRequest is the request body for /api/generate.
type GenerateRequest struct {
	Model   string             `json:"model"`
	Prompt  string             `json:"prompt"`
	Stream  bool               `json:"stream"`
	System  string             `json:"system,omitempty"`
	Options *GenerationOptions `json:"options,omitempty"`
}

// ChatRequest is the request body for /api/chat.
type ChatRequest struct {
	Model    string             `json:"model"`
	Messages []Message          `json:"messages"`
	Stream   bool               `json:"stream"`
	System   string             `json:"system,omitempty"`
	Options  *GenerationOptions `json:"options,omitempty"`
}

func (o *RequestOptions) system() string {
	if o == nil {
		return ""
	}
	return o.SystemPrompt
}

func (o *RequestOptions) options() *GenerationOptions {
	if o == nil || o.Options.IsZero() {
		return nil
	}
	return o.Options
}

// ToWireMessages strips ids and timestamps, keeping role and content in order.
func ToWireMessages(msgs []*model.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// streamRecord is one line of a streaming response. Generate mode fills
// Response, chat mode fills Message.
type streamRecord struct {
	Model    string `json:"model,omitempty"`
	Response string `json:"response,omitempty"`
	Message  *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Mode selects the endpoint and which field carries the text.
type Mode int

const (
	ModeGenerate Mode = iota
	ModeChat
)

// String returns the mode name used in spans and logs.
func (m Mode) String() string {
	if m == ModeChat {
		return "chat"
	}
	return "generate"
}

func (m Mode) path() string {
	if m == ModeChat {
		return "/api/chat"
	}
	return "/api/generate"
}

// text extracts the incremental text for the given mode.
func (r *streamRecord) text(mode Mode) string {
	if mode == ModeChat {
		if r.Message == nil {
			return ""
		}
		return r.Message.Content
	}
	return r.Response
}

// apiError is the error body Ollama returns with non-2xx responses.
type apiError struct {
	Error string `json:"error"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes a locally installed model.
type ModelInfo struct {
	Name       string       `json:"name"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	ModifiedAt time.Time    `json:"modified_at"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails are the optional details /api/tags reports.
type ModelDetails struct {
	Format            string `json:"format,omitempty"`
	Family            string `json:"family,omitempty"`
	ParameterSize     string `json:"parameter_size,omitempty"`
	QuantizationLevel string `json:"quantization_level,omitempty"`
}

// ListModelsResponse is the response from /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// FormatSize formats the model size in human-readable form ("4.7 GB").
func (m ModelInfo) FormatSize() string {
	if m.Size <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(m.Size))
}

// ShortDigest returns the first 12 characters of the digest.
func (m ModelInfo) ShortDigest() string {
	if len(m.Digest) > 12 {
		return m.Digest[:12]
	}
	return m.Digest
}
