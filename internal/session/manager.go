// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/conversation"
	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/notify"
	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/storage"
	"github.com/jeranaias/ollachat/internal/telemetry"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrStreamInFlight is returned when a reply is already streaming into
	// the target conversation.
	ErrStreamInFlight = errors.New("a reply is already streaming into this conversation")

	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrNoModel is returned when no model is selected.
	ErrNoModel = errors.New("no model selected")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// ChatClient is the part of the streaming client the manager drives.
type ChatClient interface {
	OpenChat(ctx context.Context, messages []*model.Message, modelName string, opts *ollama.RequestOptions) (*ollama.Stream, error)
	SetEndpoint(url string)
}

// Deps are the collaborators a Manager coordinates. Backend, Usage and
// Notifier may be nil.
type Deps struct {
	Conversations *conversation.Store
	Settings      *config.Store
	Client        ChatClient
	Backend       storage.Backend
	Usage         *telemetry.UsageTracker
	Notifier      notify.Notifier
	Logger        *zap.Logger
}

// Config holds configuration for the session manager.
type Config struct {
	// AutoSaveInterval is the minimum gap between autosaves (default: 2s)
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{AutoSaveInterval: 2 * time.Second}
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager runs the prompt/reply cycle: it appends the user message and an
// empty assistant placeholder, streams the reply into the placeholder and
// persists the result. At most one reply streams into a conversation at a
// time; different conversations may stream concurrently.
type Manager struct {
	convs    *conversation.Store
	settings *config.Store
	client   ChatClient
	backend  storage.Backend
	usage    *telemetry.UsageTracker
	notifier notify.Notifier
	log      *zap.Logger

	mu        sync.Mutex
	inflight  map[string]context.CancelFunc
	startTime time.Time
	dirty     bool
	lastSave  time.Time
	saves     int

	limiter *rate.Limiter
	kick    chan struct{}
	stop    context.CancelFunc
	done    chan struct{}
}

// NewManager wires a manager to its collaborators. It registers change
// listeners on both stores; call Start to begin autosaving.
func NewManager(d Deps, cfg Config) *Manager {
	if cfg.AutoSaveInterval <= 0 {
		cfg.AutoSaveInterval = DefaultConfig().AutoSaveInterval
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		convs:     d.Conversations,
		settings:  d.Settings,
		client:    d.Client,
		backend:   d.Backend,
		usage:     d.Usage,
		notifier:  d.Notifier,
		log:       logger.Named("session"),
		inflight:  make(map[string]context.CancelFunc),
		startTime: time.Now(),
		limiter:   rate.NewLimiter(rate.Every(cfg.AutoSaveInterval), 1),
		kick:      make(chan struct{}, 1),
	}

	m.convs.OnChange(m.markDirty)
	m.settings.OnChange(func(old, next config.Settings) {
		if old.OllamaURL != next.OllamaURL && m.client != nil {
			m.client.SetEndpoint(next.OllamaURL)
		}
		m.markDirty()
	})
	return m
}

// =============================================================================
// PROMPT / REPLY
// =============================================================================

// Reply describes the outcome of one Submit.
type Reply struct {
	ConversationID string
	UserMessageID  string
	MessageID      string
	Content        string
	Chunks         int
	Elapsed        time.Duration
}

// Submit sends prompt to the active conversation (creating one when none is
// active) and streams the reply. h receives the same callbacks the client
// would give; the store is updated before h.OnChunk runs. A failed stream
// keeps whatever text arrived and returns the client's error together with
// the partial Reply.
func (m *Manager) Submit(ctx context.Context, prompt string, h ollama.Handlers) (*Reply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	settings := m.settings.Get()
	if settings.Model == "" {
		return nil, ErrNoModel
	}

	convID := m.convs.ActiveID()
	if convID == "" {
		convID = m.convs.Create().ID
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !m.begin(convID, cancel) {
		return nil, ErrStreamInFlight
	}
	defer m.end(convID)

	userID, ok := m.convs.AppendMessage(convID, model.RoleUser, prompt)
	if !ok {
		return nil, conversation.ErrNotFound
	}
	history := requestHistory(m.convs.Get(convID))

	placeholderID, ok := m.convs.AppendMessage(convID, model.RoleAssistant, "")
	if !ok {
		return nil, conversation.ErrNotFound
	}
	reply := &Reply{ConversationID: convID, UserMessageID: userID, MessageID: placeholderID}

	m.convs.SetLoading(convID, true)
	defer m.convs.SetLoading(convID, false)

	opts := &ollama.RequestOptions{
		SystemPrompt: settings.SystemPrompt,
		Options:      ollama.NewGenerationOptions(settings.Temperature, settings.MaxTokens),
	}

	m.log.Debug("submitting prompt",
		zap.String("conversation", convID),
		zap.String("model", settings.Model),
		zap.Int("history", len(history)))

	stream, err := m.client.OpenChat(ctx, history, settings.Model, opts)
	if err != nil {
		return reply, err
	}

	var content strings.Builder
	err = stream.Each(ollama.Handlers{
		OnStart: h.OnStart,
		OnChunk: func(text string) {
			content.WriteString(text)
			m.convs.AppendToMessage(convID, placeholderID, text)
			if h.OnChunk != nil {
				h.OnChunk(text)
			}
		},
	})

	reply.Content = content.String()
	reply.Chunks = stream.Chunks()
	reply.Elapsed = stream.Elapsed()

	if m.usage != nil {
		m.usage.RecordStream(telemetry.StreamStats{
			Model:      stream.Model(),
			Mode:       stream.Mode().String(),
			Prompt:     prompt,
			Chunks:     stream.Chunks(),
			Characters: len([]rune(reply.Content)),
			FirstChunk: stream.TimeToFirstChunk(),
			Duration:   stream.Elapsed(),
			Err:        err,
		})
	}
	return reply, err
}

// requestHistory is the message list sent to the backend: every message
// with content. Empty assistant placeholders left by failed replies are
// skipped.
func requestHistory(conv *model.Conversation) []*model.Message {
	if conv == nil {
		return nil
	}
	out := make([]*model.Message, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		if msg.IsEmpty() {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func (m *Manager) begin(convID string, cancel context.CancelFunc) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[convID]; busy {
		return false
	}
	m.inflight[convID] = cancel
	return true
}

func (m *Manager) end(convID string) {
	m.mu.Lock()
	delete(m.inflight, convID)
	m.mu.Unlock()
}

// Cancel aborts the reply streaming into convID ("" for the active
// conversation). It reports whether one was running.
func (m *Manager) Cancel(convID string) bool {
	if convID == "" {
		convID = m.convs.ActiveID()
	}
	m.mu.Lock()
	cancel, ok := m.inflight[convID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll aborts every streaming reply.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.inflight))
	for _, c := range m.inflight {
		cancels = append(cancels, c)
	}
	m.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Streaming reports whether a reply is streaming into convID.
func (m *Manager) Streaming(convID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[convID]
	return ok
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Load restores conversations and settings from the backend. A first run
// with nothing saved is not an error. Persisted settings that fail
// validation are kept and reported as a warning.
func (m *Manager) Load(ctx context.Context) error {
	if m.backend == nil {
		return nil
	}
	snap, err := m.backend.Load(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		m.log.Info("no saved data, starting fresh", zap.String("location", m.backend.Location()))
		return nil
	}
	if err != nil {
		notify.Error(m.notifier, "Failed to load saved conversations", err)
		return err
	}

	m.convs.Restore(snap.Conversations, snap.ActiveID)
	if snap.Settings != nil {
		if res := m.settings.RestoreUnchecked(*snap.Settings); !res.IsValid() {
			m.log.Warn("saved settings are invalid", zap.Error(res.Err()))
			notify.Warn(m.notifier, "Saved settings are invalid, fix them with 'config set'", res.Err())
		}
	}

	m.mu.Lock()
	m.dirty = false
	m.lastSave = snap.SavedAt
	m.mu.Unlock()

	m.log.Info("restored saved data",
		zap.Int("conversations", len(snap.Conversations)),
		zap.String("location", m.backend.Location()))
	return nil
}

// Save writes the current state to the backend.
func (m *Manager) Save(ctx context.Context) error {
	if m.backend == nil {
		return nil
	}
	settings := m.settings.Get()
	snap := &storage.Snapshot{
		Conversations: m.convs.Conversations(),
		ActiveID:      m.convs.ActiveID(),
		Settings:      &settings,
		SavedAt:       time.Now(),
	}

	// Clear first so changes made during the write mark it dirty again.
	m.mu.Lock()
	m.dirty = false
	m.mu.Unlock()

	if err := m.backend.Save(ctx, snap); err != nil {
		m.markDirty()
		m.log.Error("save failed", zap.Error(err))
		notify.Error(m.notifier, "Failed to save conversations", err)
		return err
	}

	m.mu.Lock()
	m.lastSave = snap.SavedAt
	m.saves++
	m.mu.Unlock()
	return nil
}

// markDirty records an unsaved change and wakes the autosave loop.
func (m *Manager) markDirty() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()

	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// IsDirty returns whether there are unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// Start launches the autosave loop. Changes are saved at most once per
// AutoSaveInterval, and only while the AutoSave setting is on.
func (m *Manager) Start(ctx context.Context) {
	if m.backend == nil || m.done != nil {
		return
	}
	ctx, m.stop = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.autosaveLoop(ctx)
}

func (m *Manager) autosaveLoop(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.kick:
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return
		}
		if !m.IsDirty() || !m.settings.Get().AutoSave {
			continue
		}
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = m.Save(saveCtx)
		cancel()
	}
}

// Close cancels streaming replies, stops autosaving and writes any
// unsaved changes when AutoSave is on.
func (m *Manager) Close(ctx context.Context) error {
	m.CancelAll()
	if m.stop != nil {
		m.stop()
		<-m.done
	}

	var err error
	if m.IsDirty() && m.settings.Get().AutoSave {
		err = m.Save(ctx)
	}
	if m.usage != nil {
		if uerr := m.usage.EndSession(); uerr != nil {
			m.log.Warn("failed to persist usage", zap.Error(uerr))
		}
	}
	return err
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	StartTime time.Time
	Duration  time.Duration
	Dirty     bool
	LastSave  time.Time
	Saves     int
	Streaming int
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		StartTime: m.startTime,
		Duration:  time.Since(m.startTime),
		Dirty:     m.dirty,
		LastSave:  m.lastSave,
		Saves:     m.saves,
		Streaming: len(m.inflight),
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return strconv.Itoa(mins) + "m"
		}
		return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return strconv.Itoa(hours) + "h"
	}
	return strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
}
