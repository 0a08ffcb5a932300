// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the in-memory conversation history and the
// pointer to the active conversation.
package conversation

import (
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/ollachat/internal/model"
)

// =============================================================================
// STORE
// =============================================================================

// Store is the single writer of conversation history. All mutation goes
// through its methods; readers get deep copies.
//
// The active reference is always either empty or the ID of a stored
// conversation. Operations that remove the active conversation clear the
// reference under the same lock, so no caller can observe it dangling.
//
// Unknown IDs passed to Update, Delete or PatchMessage are silent no-ops:
// they are benign races such as deleting something already deleted.
type Store struct {
	mu       sync.RWMutex
	convs    []*model.Conversation
	activeID string

	listenerMu sync.Mutex
	listeners  []func()
}

// NewStore creates an empty store with no active conversation.
func NewStore() *Store {
	return &Store{convs: make([]*model.Conversation, 0)}
}

// OnChange registers fn to be called after every mutation. Listeners run
// outside the store lock and may read from the store.
func (s *Store) OnChange(fn func()) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

func (s *Store) changed() {
	s.listenerMu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// =============================================================================
// COLLECTION OPERATIONS
// =============================================================================

// Create adds a new empty conversation, makes it active and returns a copy.
func (s *Store) Create() *model.Conversation {
	conv := model.NewConversation("")

	s.mu.Lock()
	s.convs = append(s.convs, conv)
	s.activeID = conv.ID
	cp := conv.Clone()
	s.mu.Unlock()

	s.changed()
	return cp
}

// Add appends conv to the collection. The store keeps its own copy. A
// conversation whose ID is already present replaces the stored one.
func (s *Store) Add(conv *model.Conversation) {
	if conv == nil {
		return
	}
	cp := conv.Clone()

	s.mu.Lock()
	if i := s.indexLocked(cp.ID); i >= 0 {
		s.convs[i] = cp
	} else {
		s.convs = append(s.convs, cp)
	}
	s.mu.Unlock()

	s.changed()
}

// Update replaces the stored conversation with the same ID. It returns false
// and changes nothing when the ID is unknown.
func (s *Store) Update(conv *model.Conversation) bool {
	if conv == nil {
		return false
	}
	cp := conv.Clone()

	s.mu.Lock()
	i := s.indexLocked(cp.ID)
	if i >= 0 {
		cp.Loading = s.convs[i].Loading
		s.convs[i] = cp
	}
	s.mu.Unlock()

	if i < 0 {
		return false
	}
	s.changed()
	return true
}

// Delete removes the conversation with the given ID, clearing the active
// reference when it pointed there. Unknown IDs return false.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.convs = append(s.convs[:i], s.convs[i+1:]...)
		if s.activeID == id {
			s.activeID = ""
		}
	}
	s.mu.Unlock()

	if i < 0 {
		return false
	}
	s.changed()
	return true
}

// Clear removes every conversation and clears the active reference.
func (s *Store) Clear() {
	s.mu.Lock()
	s.convs = make([]*model.Conversation, 0)
	s.activeID = ""
	s.mu.Unlock()

	s.changed()
}

// Restore replaces the whole collection, as loaded from storage. An
// activeID that does not name one of convs is dropped.
func (s *Store) Restore(convs []*model.Conversation, activeID string) {
	cps := make([]*model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c != nil {
			cp := c.Clone()
			cp.Loading = false
			cps = append(cps, cp)
		}
	}

	s.mu.Lock()
	s.convs = cps
	s.activeID = ""
	if s.indexLocked(activeID) >= 0 {
		s.activeID = activeID
	}
	s.mu.Unlock()

	s.changed()
}

// =============================================================================
// ACTIVE CONVERSATION
// =============================================================================

// SetActive makes id the active conversation. An empty id clears the
// reference. An unknown id is rejected and leaves the state unchanged.
func (s *Store) SetActive(id string) bool {
	s.mu.Lock()
	ok := id == "" || s.indexLocked(id) >= 0
	if ok {
		s.activeID = id
	}
	s.mu.Unlock()

	if ok {
		s.changed()
	}
	return ok
}

// ActiveID returns the active conversation ID, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the active conversation, or nil.
func (s *Store) Active() *model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.activeLocked(); c != nil {
		return c.Clone()
	}
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendPlaceholder appends a message with the given role and content to the
// active conversation and returns its ID. With no active conversation it
// returns ("", false).
func (s *Store) AppendPlaceholder(role model.Role, content string) (string, bool) {
	return s.AppendMessage("", role, content)
}

// AppendMessage is AppendPlaceholder for an explicit conversation; an empty
// convID means the active one. The first user message of a conversation
// still carrying the default title also sets the title.
func (s *Store) AppendMessage(convID string, role model.Role, content string) (string, bool) {
	msg := model.NewMessage(content, role)

	s.mu.Lock()
	conv := s.targetLocked(convID)
	if conv != nil {
		conv.AddMessage(msg)
		if role == model.RoleUser && conv.HasDefaultTitle() {
			conv.Title = model.GenerateTitleFromMessages(conv.Messages)
		}
	}
	s.mu.Unlock()

	if conv == nil {
		return "", false
	}
	s.changed()
	return msg.ID, true
}

// PatchMessage replaces the content of a message in the active conversation
// and refreshes its timestamp. Unknown IDs return false.
func (s *Store) PatchMessage(id, content string) bool {
	return s.PatchMessageIn("", id, content)
}

// PatchMessageIn is PatchMessage for an explicit conversation, so a reply
// keeps streaming into its own conversation after the user switches away.
func (s *Store) PatchMessageIn(convID, id, content string) bool {
	return s.mutateMessage(convID, id, func(m *model.Message) {
		m.SetContent(content)
	})
}

// AppendToMessage appends delta to a message in conversation convID (""
// for the active one). Streaming replies use it so the writer never needs
// the accumulated text.
func (s *Store) AppendToMessage(convID, id, delta string) bool {
	return s.mutateMessage(convID, id, func(m *model.Message) {
		// Copies the reply so far on every delta. Fine for chat-sized
		// replies; readers get a plain string without extra locking.
		m.SetContent(m.Content + delta)
	})
}

func (s *Store) mutateMessage(convID, id string, fn func(*model.Message)) bool {
	s.mu.Lock()
	var msg *model.Message
	conv := s.targetLocked(convID)
	if conv != nil {
		msg = conv.GetMessageByID(id)
	}
	if msg != nil {
		fn(msg)
		conv.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	if msg == nil {
		return false
	}
	s.changed()
	return true
}

// SetLoading flags a conversation as receiving a reply. The flag is never
// persisted.
func (s *Store) SetLoading(id string, loading bool) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.convs[i].Loading = loading
	}
	s.mu.Unlock()

	if i >= 0 {
		s.changed()
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a copy of the conversation with the given ID, or nil.
func (s *Store) Get(id string) *model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.convs[i].Clone()
	}
	return nil
}

// Conversations returns copies of all conversations in insertion order.
func (s *Store) Conversations() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.Clone()
	}
	return out
}

// List returns copies of all conversations, most recently updated first.
func (s *Store) List() []*model.Conversation {
	out := s.Conversations()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range s.convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// targetLocked resolves convID, "" meaning the active conversation.
func (s *Store) targetLocked(convID string) *model.Conversation {
	if convID == "" {
		return s.activeLocked()
	}
	if i := s.indexLocked(convID); i >= 0 {
		return s.convs[i]
	}
	return nil
}

func (s *Store) activeLocked() *model.Conversation {
	if i := s.indexLocked(s.activeID); i >= 0 {
		return s.convs[i]
	}
	return nil
}
