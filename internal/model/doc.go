// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages
// and the pure helpers that assemble them.
//
// # Key Types
//
//   - Conversation: ordered chat history with title and timestamps
//   - Message: one turn with role, content and last-modified time
//   - Role: user, assistant or system
//
// # Usage
//
//	conv := model.NewConversation("")
//	conv.AddMessage(model.NewMessage("Hello!", model.RoleUser))
//	conv.Title = model.GenerateTitleFromMessages(conv.Messages)
package model
