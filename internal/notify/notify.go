// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify delivers user-facing notices (errors, confirmations) from
// the core to whatever surface is showing them.
package notify

import (
	"sync"
)

// =============================================================================
// NOTICE
// =============================================================================

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is one message for the user.
type Notice struct {
	Level   Level
	Message string
	Err     error
}

// Text returns the message with the error appended when there is one.
func (n Notice) Text() string {
	if n.Err == nil {
		return n.Message
	}
	if n.Message == "" {
		return n.Err.Error()
	}
	return n.Message + ": " + n.Err.Error()
}

// Notifier receives notices. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(n Notice)
}

// Func adapts a function to the Notifier interface.
type Func func(n Notice)

// Notify calls f(n).
func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// =============================================================================
// HELPERS
// =============================================================================

// Error sends an error notice. A nil notifier is ignored.
func Error(n Notifier, message string, err error) {
	send(n, Notice{Level: LevelError, Message: message, Err: err})
}

// Success sends a success notice.
func Success(n Notifier, message string) {
	send(n, Notice{Level: LevelSuccess, Message: message})
}

// Info sends an informational notice.
func Info(n Notifier, message string) {
	send(n, Notice{Level: LevelInfo, Message: message})
}

// Warn sends a warning notice.
func Warn(n Notifier, message string, err error) {
	send(n, Notice{Level: LevelWarning, Message: message, Err: err})
}

func send(n Notifier, notice Notice) {
	if n != nil {
		n.Notify(notice)
	}
}

// =============================================================================
// COMBINATORS
// =============================================================================

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(n Notice) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Recorder keeps every notice it receives. Useful in tests and for the
// REPL's "/notices" view.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice and whether there was one.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Count returns how many notices of level l were recorded.
func (r *Recorder) Count(l Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Level == l {
			n++
		}
	}
	return n
}
