// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/ollachat/internal/util"
)

// =============================================================================
// USAGE TRACKER
// =============================================================================

// sessionIDCounter keeps session IDs unique when created within one second.
var sessionIDCounter uint64

// MaxSlowestStreams is how many stream records a session keeps.
const MaxSlowestStreams = 10

// promptPreviewRunes bounds the prompt text kept per stream record.
const promptPreviewRunes = 100

// UsageTracker accumulates per-stream statistics for the running session
// and persists finished sessions. Nothing leaves the machine.
type UsageTracker struct {
	mu      sync.RWMutex
	current *SessionUsage
	storage *UsageStorage
}

// SessionUsage is the usage of one program run.
type SessionUsage struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	Streams    int `json:"streams"`
	Failures   int `json:"failures"`
	Chunks     int `json:"chunks"`
	Characters int `json:"characters"`

	Models map[string]*ModelUsage `json:"models"`

	// Slowest holds the longest streams, slowest first.
	Slowest []StreamRecord `json:"slowest"`
}

// ModelUsage aggregates the streams run against one model.
type ModelUsage struct {
	Streams    int           `json:"streams"`
	Chunks     int           `json:"chunks"`
	Characters int           `json:"characters"`
	Duration   time.Duration `json:"duration"`
}

// StreamStats describes one finished stream.
type StreamStats struct {
	Model      string
	Mode       string
	Prompt     string
	Chunks     int
	Characters int
	FirstChunk time.Duration
	Duration   time.Duration
	Err        error
}

// StreamRecord is the persisted form of StreamStats.
type StreamRecord struct {
	Timestamp  time.Time     `json:"timestamp"`
	Model      string        `json:"model"`
	Mode       string        `json:"mode"`
	Prompt     string        `json:"prompt"`
	Chunks     int           `json:"chunks"`
	Characters int           `json:"characters"`
	FirstChunk time.Duration `json:"first_chunk"`
	Duration   time.Duration `json:"duration"`
	Failed     bool          `json:"failed"`
}

// UsageTrends aggregates persisted sessions over a number of days.
type UsageTrends struct {
	Days           int                    `json:"days"`
	Sessions       int                    `json:"sessions"`
	Streams        int                    `json:"streams"`
	Failures       int                    `json:"failures"`
	Characters     int                    `json:"characters"`
	DailyBreakdown []DailyUsage           `json:"daily_breakdown"`
	ModelBreakdown map[string]*ModelUsage `json:"model_breakdown"`
}

// DailyUsage is one day of UsageTrends.
type DailyUsage struct {
	Date       time.Time `json:"date"`
	Streams    int       `json:"streams"`
	Characters int       `json:"characters"`
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// NewUsageTracker creates a tracker persisting to storagePath. An empty
// path keeps usage in memory only.
func NewUsageTracker(storagePath string) (*UsageTracker, error) {
	var storage *UsageStorage
	if storagePath != "" {
		var err error
		if storage, err = NewUsageStorage(storagePath); err != nil {
			return nil, err
		}
	}
	return &UsageTracker{
		current: newSessionUsage(time.Now()),
		storage: storage,
	}, nil
}

func newSessionUsage(now time.Time) *SessionUsage {
	return &SessionUsage{
		ID:        generateSessionID(now),
		StartTime: now,
		Models:    make(map[string]*ModelUsage),
		Slowest:   make([]StreamRecord, 0, MaxSlowestStreams+1),
	}
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordStream adds one finished stream to the current session.
func (t *UsageTracker) RecordStream(st StreamStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.current
	s.Streams++
	s.Chunks += st.Chunks
	s.Characters += st.Characters
	if st.Err != nil {
		s.Failures++
	}

	mu, ok := s.Models[st.Model]
	if !ok {
		mu = &ModelUsage{}
		s.Models[st.Model] = mu
	}
	mu.Streams++
	mu.Chunks += st.Chunks
	mu.Characters += st.Characters
	mu.Duration += st.Duration

	s.Slowest = append(s.Slowest, StreamRecord{
		Timestamp:  time.Now(),
		Model:      st.Model,
		Mode:       st.Mode,
		Prompt:     util.TruncateRunes(st.Prompt, promptPreviewRunes),
		Chunks:     st.Chunks,
		Characters: st.Characters,
		FirstChunk: st.FirstChunk,
		Duration:   st.Duration,
		Failed:     st.Err != nil,
	})
	sort.SliceStable(s.Slowest, func(i, j int) bool {
		return s.Slowest[i].Duration > s.Slowest[j].Duration
	})
	if len(s.Slowest) > MaxSlowestStreams {
		s.Slowest = s.Slowest[:MaxSlowestStreams]
	}
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// Current returns a copy of the running session's usage.
func (t *UsageTracker) Current() *SessionUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current.clone()
}

// History returns persisted sessions started within [from, to].
func (t *UsageTracker) History(from, to time.Time) []*SessionUsage {
	if t.storage == nil {
		return nil
	}
	ids, err := t.storage.List(from, to)
	if err != nil {
		return nil
	}
	sessions := make([]*SessionUsage, 0, len(ids))
	for _, id := range ids {
		s, err := t.storage.Load(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

// Trends aggregates the last days of persisted sessions plus the running
// one.
func (t *UsageTracker) Trends(days int) *UsageTrends {
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	sessions := t.History(from, to)
	current := t.Current()
	seen := false
	for _, s := range sessions {
		if s.ID == current.ID {
			seen = true
			break
		}
	}
	if !seen {
		sessions = append(sessions, current)
	}

	trends := &UsageTrends{
		Days:           days,
		DailyBreakdown: make([]DailyUsage, 0),
		ModelBreakdown: make(map[string]*ModelUsage),
	}

	daily := make(map[string]*DailyUsage)
	for _, s := range sessions {
		trends.Sessions++
		trends.Streams += s.Streams
		trends.Failures += s.Failures
		trends.Characters += s.Characters

		key := s.StartTime.Format("2006-01-02")
		d, ok := daily[key]
		if !ok {
			y, m, dd := s.StartTime.Date()
			d = &DailyUsage{Date: time.Date(y, m, dd, 0, 0, 0, 0, s.StartTime.Location())}
			daily[key] = d
		}
		d.Streams += s.Streams
		d.Characters += s.Characters

		for name, mu := range s.Models {
			agg, ok := trends.ModelBreakdown[name]
			if !ok {
				agg = &ModelUsage{}
				trends.ModelBreakdown[name] = agg
			}
			agg.Streams += mu.Streams
			agg.Chunks += mu.Chunks
			agg.Characters += mu.Characters
			agg.Duration += mu.Duration
		}
	}

	for _, d := range daily {
		trends.DailyBreakdown = append(trends.DailyBreakdown, *d)
	}
	sort.Slice(trends.DailyBreakdown, func(i, j int) bool {
		return trends.DailyBreakdown[i].Date.Before(trends.DailyBreakdown[j].Date)
	})
	return trends
}

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

// EndSession persists the current session and starts a new one.
func (t *UsageTracker) EndSession() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current.EndTime = time.Now()
	var err error
	if t.storage != nil && t.current.Streams > 0 {
		err = t.storage.Save(t.current)
	}
	t.current = newSessionUsage(time.Now())
	return err
}

// SaveCurrentSession persists the running session without ending it.
func (t *UsageTracker) SaveCurrentSession() error {
	if t.storage == nil {
		return nil
	}
	return t.storage.Save(t.Current())
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *SessionUsage) clone() *SessionUsage {
	dst := *s
	dst.Models = make(map[string]*ModelUsage, len(s.Models))
	for k, v := range s.Models {
		mu := *v
		dst.Models[k] = &mu
	}
	dst.Slowest = make([]StreamRecord, len(s.Slowest))
	copy(dst.Slowest, s.Slowest)
	return &dst
}

// generateSessionID returns "20060102-150405-N".
func generateSessionID(now time.Time) string {
	counter := atomic.AddUint64(&sessionIDCounter, 1)
	return fmt.Sprintf("%s-%d", now.Format(sessionTimeLayout), counter)
}
