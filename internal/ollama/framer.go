// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
)

// =============================================================================
// LINE FRAMER
// =============================================================================

// LineFramer splits an arbitrarily chunked byte stream into newline
// delimited records. Network reads may cut a record in half or deliver
// several at once; the framer keeps the unterminated tail until the rest
// arrives. Blank and whitespace-only lines are dropped.
//
// The zero value is ready to use. A LineFramer is not safe for concurrent use.
type LineFramer struct {
	buf []byte
}

// Feed appends p and returns every line completed by it, in order, without
// the trailing newline. Returned slices are owned by the caller.
func (f *LineFramer) Feed(p []byte) [][]byte {
	f.buf = append(f.buf, p...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		if line := trimLine(f.buf[:i]); len(line) > 0 {
			lines = append(lines, bytes.Clone(line))
		}
		f.buf = f.buf[i+1:]
	}

	// Compact so a long stream does not keep every consumed byte reachable.
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	} else if cap(f.buf) > 4*len(f.buf)+4096 {
		f.buf = bytes.Clone(f.buf)
	}
	return lines
}

// Flush returns the unterminated tail, or nil when it is blank, and resets
// the framer. Call it once the stream has ended.
func (f *LineFramer) Flush() []byte {
	tail := trimLine(f.buf)
	f.buf = nil
	if len(tail) == 0 {
		return nil
	}
	return bytes.Clone(tail)
}

// Buffered returns the number of bytes waiting for a newline.
func (f *LineFramer) Buffered() int {
	return len(f.buf)
}

func trimLine(b []byte) []byte {
	return bytes.TrimSpace(b)
}
