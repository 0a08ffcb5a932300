// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/ollachat/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to JSON format.
// NOTE: JSON exports always contain the complete conversation so they can
// be imported again; the filtering options do not apply.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a conversation to JSON format.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	return json.MarshalIndent(conv, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// Archive is the layout of a full export: every conversation plus which
// one was active.
type Archive struct {
	Conversations         []*model.Conversation `json:"conversations"`
	CurrentConversationID string                `json:"currentConversationId"`
}

// ExportAll renders every conversation as one JSON archive.
func ExportAll(convs []*model.Conversation, activeID string) ([]byte, error) {
	if convs == nil {
		convs = make([]*model.Conversation, 0)
	}
	return json.MarshalIndent(Archive{Conversations: convs, CurrentConversationID: activeID}, "", "  ")
}

// ImportArchive parses data produced by ExportAll or by JSONExporter (a
// single conversation). Conversations without an ID and messages with an
// unknown role are rejected. Null messages are dropped, and messages with a
// missing or repeated ID get a fresh one, since message IDs are unique
// across all conversations.
func ImportArchive(data []byte) (*Archive, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid export file: %w", err)
	}

	var archive Archive
	if _, ok := probe["conversations"]; ok {
		if err := json.Unmarshal(data, &archive); err != nil {
			return nil, fmt.Errorf("invalid export file: %w", err)
		}
	} else {
		var conv model.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return nil, fmt.Errorf("invalid export file: %w", err)
		}
		archive.Conversations = []*model.Conversation{&conv}
	}

	seen := make(map[string]bool)
	for i, c := range archive.Conversations {
		if c == nil || c.ID == "" {
			return nil, fmt.Errorf("invalid export file: conversation %d has no id", i+1)
		}
		msgs, err := importMessages(c.Messages, seen)
		if err != nil {
			return nil, fmt.Errorf("invalid export file: conversation %d: %w", i+1, err)
		}
		c.Messages = msgs
		if c.Title == "" {
			c.Title = model.DefaultTitle
		}
	}
	return &archive, nil
}

func importMessages(in []*model.Message, seen map[string]bool) ([]*model.Message, error) {
	out := make([]*model.Message, 0, len(in))
	for j, m := range in {
		if m == nil {
			continue
		}
		if !m.Role.Valid() {
			return nil, fmt.Errorf("message %d has unknown role %q", j+1, m.Role)
		}
		if m.ID == "" || seen[m.ID] {
			m.ID = model.NewID()
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out, nil
}
