// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jeranaias/ollachat/internal/model"
)

// =============================================================================
// SEARCH
// =============================================================================

// Search returns copies of the conversations whose title or any message
// contains query, case-insensitively, most recently updated first. An empty
// query matches everything.
func (s *Store) Search(query string) []*model.Conversation {
	all := s.List()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all
	}

	results := make([]*model.Conversation, 0)
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Title), query) {
			results = append(results, c)
			continue
		}
		for _, msg := range c.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, c)
				break
			}
		}
	}
	return results
}

// ErrNotFound is returned by Resolve when nothing matches.
var ErrNotFound = errors.New("conversation not found")

// ErrAmbiguous is returned by Resolve when an ID prefix matches more than
// one conversation.
var ErrAmbiguous = errors.New("conversation reference is ambiguous")

// Resolve finds a conversation by 1-based position in List order, full ID
// or unique ID prefix, and returns its ID.
func (s *Store) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrNotFound
	}
	list := s.List()

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1].ID, nil
		}
		return "", ErrNotFound
	}

	match := ""
	for _, c := range list {
		if c.ID == ref {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			if match != "" {
				return "", ErrAmbiguous
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", ErrNotFound
	}
	return match, nil
}
