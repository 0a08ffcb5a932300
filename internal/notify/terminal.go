// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"
)

// =============================================================================
// TERMINAL NOTIFIER
// =============================================================================

var (
	infoBadge    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	successBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warningBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	noticeText   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// Terminal prints notices as styled one-line toasts. Bursts of non-error
// notices are limited so a noisy loop cannot flood the screen; dropped
// notices are counted and reported with the next one that gets through.
// Errors are always printed, since callers rely on them being shown.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	limiter *rate.Limiter
	dropped int
}

// NewTerminal creates a notifier writing to w (usually os.Stderr).
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		w:       w,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
	}
}

// Notify implements Notifier.
func (t *Terminal) Notify(n Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.limiter.Allow() && n.Level != LevelError {
		t.dropped++
		return
	}

	line := badge(n.Level) + " " + noticeText.Render(n.Text())
	if t.dropped > 0 {
		line += noticeText.Render(fmt.Sprintf(" (+%d suppressed)", t.dropped))
		t.dropped = 0
	}
	fmt.Fprintln(t.w, line)
}

func badge(l Level) string {
	switch l {
	case LevelSuccess:
		return successBadge.Render("[ok]")
	case LevelWarning:
		return warningBadge.Render("[warn]")
	case LevelError:
		return errorBadge.Render("[error]")
	default:
		return infoBadge.Render("[info]")
	}
}
