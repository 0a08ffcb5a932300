// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"

	"github.com/jeranaias/ollachat/internal/notify"
)

// =============================================================================
// CLIPBOARD
// =============================================================================

// ErrNoTerminal is returned by the escape-sequence fallback when there is
// no terminal to write it to.
var ErrNoTerminal = errors.New("no terminal for clipboard escape sequence")

// Clipboard copies text to the system clipboard. When the system clipboard
// is unavailable (no xclip/xsel, remote session) it falls back to an OSC 52
// escape sequence, which most terminal emulators forward to the local
// clipboard.
type Clipboard struct {
	write    func(string) error
	terminal io.Writer
	notifier notify.Notifier
}

// NewClipboard returns a clipboard that falls back to out when out is a
// terminal.
func NewClipboard(out *os.File, n notify.Notifier) *Clipboard {
	var w io.Writer
	if out != nil && term.IsTerminal(int(out.Fd())) {
		w = out
	}
	return NewClipboardWith(clipboard.WriteAll, w, n)
}

// NewClipboardWith builds a clipboard from explicit parts. A nil terminal
// disables the fallback.
func NewClipboardWith(write func(string) error, terminal io.Writer, n notify.Notifier) *Clipboard {
	if n == nil {
		n = notify.Discard
	}
	return &Clipboard{write: write, terminal: terminal, notifier: n}
}

// Copy copies text and reports whether any method succeeded. A failing
// primary clipboard is reported before the fallback is tried; a failing
// fallback is reported as well.
func (c *Clipboard) Copy(text string) bool {
	err := errors.New("clipboard unavailable")
	if c.write != nil {
		err = c.write(text)
	}
	if err == nil {
		notify.Success(c.notifier, "Copied to clipboard")
		return true
	}
	notify.Error(c.notifier, "Failed to copy to clipboard", err)

	if err := c.fallback(text); err != nil {
		notify.Error(c.notifier, "Failed to copy text", err)
		return false
	}
	notify.Success(c.notifier, "Copied to clipboard via terminal")
	return true
}

func (c *Clipboard) fallback(text string) error {
	if c.terminal == nil {
		return ErrNoTerminal
	}
	seq := osc52.New(text)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	}
	_, err := seq.WriteTo(c.terminal)
	return err
}
