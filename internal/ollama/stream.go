// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// DefaultReadBufferSize is the size of each body read.
const DefaultReadBufferSize = 4096

// =============================================================================
// HANDLERS
// =============================================================================

// Handlers receive the text increments of a push-style stream.
type Handlers struct {
	// OnStart is called once, right before the first OnChunk. Streams that
	// deliver no text never call it.
	OnStart func()

	// OnChunk receives each non-empty text increment in arrival order.
	OnChunk func(text string)
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is a pull iterator over the text increments of one streaming
// response:
//
//	s, err := client.OpenChat(ctx, history, "llama3.2", nil)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for s.Next() {
//	    fmt.Print(s.Text())
//	}
//	return s.Err()
//
// Increments come out in the order the backend wrote its lines, however the
// network split them. Cancelling the context or calling Close stops the
// stream. A Stream is not safe for concurrent use.
type Stream struct {
	ctx  context.Context
	mode Mode
	body io.ReadCloser

	framer  LineFramer
	readBuf []byte
	pending [][]byte

	text    string
	model   string
	chunks  int
	records int
	done    bool
	eof     bool
	closed  bool
	err     error

	startedAt  time.Time
	firstChunk time.Duration
	elapsed    time.Duration

	finish   func(*Stream)
	finished bool
}

func newStream(ctx context.Context, mode Mode, modelName string, body io.ReadCloser, bufSize int, finish func(*Stream)) *Stream {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	return &Stream{
		ctx:       ctx,
		mode:      mode,
		model:     modelName,
		body:      body,
		readBuf:   make([]byte, bufSize),
		startedAt: time.Now(),
		finish:    finish,
	}
}

// Next advances to the next non-empty text increment. It returns false when
// the stream has ended, failed or been closed; check Err afterwards.
func (s *Stream) Next() bool {
	for {
		if s.err != nil || s.closed {
			return false
		}

		for len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]

			text, err := s.decode(line)
			if err != nil {
				s.fail(err)
				return false
			}
			if text == "" {
				continue
			}

			if s.chunks == 0 {
				s.firstChunk = time.Since(s.startedAt)
			}
			s.chunks++
			s.text = text
			return true
		}

		if s.eof {
			s.end()
			return false
		}

		if err := s.ctx.Err(); err != nil {
			s.fail(err)
			return false
		}

		n, err := s.body.Read(s.readBuf)
		if n > 0 {
			s.pending = append(s.pending, s.framer.Feed(s.readBuf[:n])...)
		}
		if err == io.EOF {
			s.eof = true
			// The last record may arrive without a trailing newline.
			if tail := s.framer.Flush(); tail != nil {
				s.pending = append(s.pending, tail)
			}
			continue
		}
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				s.fail(ctxErr)
			} else {
				s.fail(newTransportError("stream interrupted", 0, err))
			}
			return false
		}
	}
}

// decode parses one framed record and returns its text increment.
func (s *Stream) decode(line []byte) (string, error) {
	s.records++

	var rec streamRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return "", newDecodeError(s.records, line, err)
	}
	if rec.Error != "" {
		return "", &ClientError{Type: ErrTypeTransport, Message: "backend error: " + rec.Error}
	}
	if rec.Model != "" {
		s.model = rec.Model
	}
	if rec.Done {
		s.done = true
	}
	return rec.text(s.mode), nil
}

// Text returns the increment produced by the last successful Next.
func (s *Stream) Text() string {
	return s.text
}

// Err returns the error that ended the stream, or nil when it ran to
// completion or was closed by the caller.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the response body. It is safe to call more than once and
// after the stream has ended.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.body.Close()
	s.end()
	return err
}

// Each drives the stream to completion, pushing increments to h, and closes
// it. It returns the stream's error.
func (s *Stream) Each(h Handlers) error {
	defer s.Close()
	for s.Next() {
		if s.chunks == 1 && h.OnStart != nil {
			h.OnStart()
		}
		if h.OnChunk != nil {
			h.OnChunk(s.text)
		}
	}
	return s.err
}

// Collect reads the remaining increments and returns them concatenated,
// together with the stream's error.
func (s *Stream) Collect() (string, error) {
	var sb strings.Builder
	err := s.Each(Handlers{OnChunk: func(text string) { sb.WriteString(text) }})
	return sb.String(), err
}

// Started reports whether at least one increment has been delivered.
func (s *Stream) Started() bool {
	return s.chunks > 0
}

// Chunks returns the number of increments delivered so far.
func (s *Stream) Chunks() int {
	return s.chunks
}

// Done reports whether the backend sent its final record.
func (s *Stream) Done() bool {
	return s.done
}

// Model returns the model name, as reported by the backend once it has
// sent a record.
func (s *Stream) Model() string {
	return s.model
}

// Mode returns whether this is a generate or chat stream.
func (s *Stream) Mode() Mode {
	return s.mode
}

// TimeToFirstChunk returns the delay between opening and the first
// increment, zero if none arrived.
func (s *Stream) TimeToFirstChunk() time.Duration {
	return s.firstChunk
}

// Elapsed returns the total stream duration once it has ended.
func (s *Stream) Elapsed() time.Duration {
	if !s.finished {
		return time.Since(s.startedAt)
	}
	return s.elapsed
}

func (s *Stream) fail(err error) {
	s.err = err
	s.body.Close()
	s.end()
}

// end runs the finish hook exactly once.
func (s *Stream) end() {
	if s.finished {
		return
	}
	s.finished = true
	s.elapsed = time.Since(s.startedAt)
	if s.finish != nil {
		s.finish(s)
	}
}
