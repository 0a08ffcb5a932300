// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/notify"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeOllama records the last request body and answers with the configured
// lines, flushing after each write so the client sees separate reads.
type fakeOllama struct {
	mu     sync.Mutex
	bodies map[string][]byte

	writes []string
	status int
}

func (f *fakeOllama) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		f.mu.Lock()
		if f.bodies == nil {
			f.bodies = make(map[string][]byte)
		}
		f.bodies[r.URL.Path] = body
		f.mu.Unlock()

		if f.status != 0 && f.status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			io.WriteString(w, `{"error":"model 'nope' not found"}`)
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, part := range f.writes {
			io.WriteString(w, part)
			flusher.Flush()
		}
	}
}

func (f *fakeOllama) body(t *testing.T, path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var m map[string]any
	require.NoError(t, json.Unmarshal(f.bodies[path], &m))
	return m
}

func newTestClient(t *testing.T, url string) (*Client, *notify.Recorder) {
	rec := &notify.Recorder{}
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Notifier = rec
	return NewClientWithConfig(cfg), rec
}

func history(contents ...string) []*model.Message {
	msgs := make([]*model.Message, 0, len(contents))
	for i, c := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs = append(msgs, model.NewMessage(c, role))
	}
	return msgs
}

// =============================================================================
// CHAT STREAM TESTS
// =============================================================================

func TestChatStream_HiThere(t *testing.T) {
	fake := &fakeOllama{writes: []string{
		`{"message":{"content":"Hi"}}` + "\n",
		`{"message":{"content":" there"}}` + "\n",
		`{"done":true}` + "\n",
	}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client, rec := newTestClient(t, srv.URL)

	var events []string
	var sb strings.Builder
	err := client.ChatStream(context.Background(), history("Hello"), "llama3.2", Handlers{
		OnStart: func() { events = append(events, "start") },
		OnChunk: func(text string) {
			events = append(events, "chunk:"+text)
			sb.WriteString(text)
		},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Hi there", sb.String())
	assert.Equal(t, []string{"start", "chunk:Hi", "chunk: there"}, events)
	assert.Empty(t, rec.Notices())
}

func TestChatStream_RequestBody(t *testing.T) {
	fake := &fakeOllama{writes: []string{`{"done":true}` + "\n"}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	msgs := history("Hello", "Hi!", "How are you?")

	err := client.ChatStream(context.Background(), msgs, "llama3.2", Handlers{}, &RequestOptions{
		SystemPrompt: "Be brief.",
		Options:      NewGenerationOptions(0.5, 128),
	})
	require.NoError(t, err)

	body := fake.body(t, "/api/chat")
	assert.Equal(t, "llama3.2", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, "Be brief.", body["system"])
	assert.Equal(t, map[string]any{"temperature": 0.5, "num_predict": float64(128)}, body["options"])

	wire := body["messages"].([]any)
	require.Len(t, wire, 3)
	for i, raw := range wire {
		m := raw.(map[string]any)
		assert.Len(t, m, 2, "only role and content are sent")
		assert.Equal(t, msgs[i].Content, m["content"])
		assert.Equal(t, string(msgs[i].Role), m["role"])
	}
}

func TestChatStream_OptionalFieldsOmitted(t *testing.T) {
	fake := &fakeOllama{writes: []string{`{"done":true}` + "\n"}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	require.NoError(t, client.ChatStream(context.Background(), history("x"), "m", Handlers{}, &RequestOptions{
		Options: &GenerationOptions{},
	}))

	body := fake.body(t, "/api/chat")
	assert.NotContains(t, body, "system")
	assert.NotContains(t, body, "options")

	temp := 0.0
	require.NoError(t, client.ChatStream(context.Background(), history("x"), "m", Handlers{}, &RequestOptions{
		Options: &GenerationOptions{Temperature: &temp},
	}))
	body = fake.body(t, "/api/chat")
	assert.Equal(t, map[string]any{"temperature": 0.0}, body["options"], "zero temperature is still sent")
}

func TestChatStream_InvalidInput(t *testing.T) {
	client, rec := newTestClient(t, "http://127.0.0.1:1")

	err := client.ChatStream(context.Background(), nil, "m", Handlers{}, nil)
	assert.True(t, IsInvalidRequest(err))
	assert.ErrorIs(t, err, ErrNoMessages)

	err = client.ChatStream(context.Background(), history("x"), "", Handlers{}, nil)
	assert.ErrorIs(t, err, ErrEmptyModel)
	assert.Equal(t, 2, rec.Count(notify.LevelError))
}

// =============================================================================
// GENERATE STREAM TESTS
// =============================================================================

func TestGenerateStream_ResponseField(t *testing.T) {
	fake := &fakeOllama{writes: []string{
		`{"model":"qwen","response":"The"}` + "\n" + `{"response":" sky"}` + "\n",
		`{"response":""}` + "\n",
		`{"response":" is blue","done":true}` + "\n",
	}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	var chunks []string
	starts := 0
	err := client.GenerateStream(context.Background(), "Why is the sky blue?", "qwen", Handlers{
		OnStart: func() { starts++ },
		OnChunk: func(text string) { chunks = append(chunks, text) },
	}, &RequestOptions{SystemPrompt: "Answer in one line."})

	require.NoError(t, err)
	assert.Equal(t, []string{"The", " sky", " is blue"}, chunks)
	assert.Equal(t, 1, starts)

	body := fake.body(t, "/api/generate")
	assert.Equal(t, "Why is the sky blue?", body["prompt"])
	assert.Equal(t, "Answer in one line.", body["system"])
	assert.NotContains(t, body, "options")
}

func TestGenerateStream_NoChunksNoStart(t *testing.T) {
	fake := &fakeOllama{writes: []string{`{"response":""}` + "\n", `{"done":true}` + "\n"}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	started := false
	err := client.GenerateStream(context.Background(), "p", "m", Handlers{
		OnStart: func() { started = true },
	}, nil)

	require.NoError(t, err)
	assert.False(t, started)
}

func TestGenerateStream_EmptyPrompt(t *testing.T) {
	client, _ := newTestClient(t, "http://127.0.0.1:1")
	err := client.GenerateStream(context.Background(), "", "m", Handlers{}, nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

// =============================================================================
// FRAMING OVER THE WIRE
// =============================================================================

func TestStream_ByteAtATime(t *testing.T) {
	body := `{"message":{"content":"日本"}}` + "\n" + `{"message":{"content":"語"}}` + "\n" + `{"done":true}` + "\n"
	var writes []string
	for i := 0; i < len(body); i++ {
		writes = append(writes, body[i:i+1])
	}
	srv := httptest.NewServer((&fakeOllama{writes: writes}).handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	s, err := client.OpenChat(context.Background(), history("x"), "m", nil)
	require.NoError(t, err)

	got, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, "日本語", got)
	assert.True(t, s.Done())
	assert.Equal(t, 2, s.Chunks())
}

func TestStream_TrailingLineWithoutNewline(t *testing.T) {
	srv := httptest.NewServer((&fakeOllama{writes: []string{
		`{"response":"a"}` + "\n" + `{"response":"b","done":true}`,
	}}).handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	s, err := client.OpenGenerate(context.Background(), "p", "m", nil)
	require.NoError(t, err)

	got, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestStream_PullIterator(t *testing.T) {
	srv := httptest.NewServer((&fakeOllama{writes: []string{
		`{"model":"llama3.2:latest","message":{"content":"one"}}` + "\n",
		`{"message":{"content":"two"}}` + "\n",
	}}).handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	s, err := client.OpenChat(context.Background(), history("x"), "llama3.2", nil)
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.Started())
	require.True(t, s.Next())
	assert.Equal(t, "one", s.Text())
	assert.True(t, s.Started())
	require.True(t, s.Next())
	assert.Equal(t, "two", s.Text())
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.Equal(t, "llama3.2:latest", s.Model())
	assert.Equal(t, ModeChat, s.Mode())
}

func TestStream_CloseEarly(t *testing.T) {
	srv := httptest.NewServer((&fakeOllama{writes: []string{
		`{"response":"a"}` + "\n", `{"response":"b"}` + "\n",
	}}).handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	s, err := client.OpenGenerate(context.Background(), "p", "m", nil)
	require.NoError(t, err)

	require.True(t, s.Next())
	require.NoError(t, s.Close())
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.NoError(t, s.Close(), "second close is a no-op")
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestStream_DecodeErrorKeepsPartialOutput(t *testing.T) {
	srv := httptest.NewServer((&fakeOllama{writes: []string{
		`{"message":{"content":"partial"}}` + "\n",
		`{"message":` + "\n",
		`{"message":{"content":"never"}}` + "\n",
	}}).handler(t))
	defer srv.Close()

	client, rec := newTestClient(t, srv.URL)

	var got []string
	err := client.ChatStream(context.Background(), history("x"), "m", Handlers{
		OnChunk: func(text string) { got = append(got, text) },
	}, nil)

	require.Error(t, err)
	assert.True(t, IsDecode(err))
	assert.Equal(t, []string{"partial"}, got)

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, 2, clientErr.Record)
	assert.Equal(t, `{"message":`, clientErr.Line)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, last.Level)
	assert.Equal(t, "Chat streaming failed", last.Message)
}

func TestStream_NonSuccessStatus(t *testing.T) {
	fake := &fakeOllama{status: http.StatusNotFound}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client, rec := newTestClient(t, srv.URL)
	err := client.GenerateStream(context.Background(), "p", "nope", Handlers{}, nil)

	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Contains(t, err.Error(), "model 'nope' not found")
	assert.Equal(t, 1, rec.Count(notify.LevelError))
}

func TestStream_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, rec := newTestClient(t, url)
	err := client.ChatStream(context.Background(), history("x"), "m", Handlers{}, nil)

	assert.True(t, IsTransport(err))
	assert.Zero(t, StatusCode(err))
	assert.Equal(t, 1, rec.Count(notify.LevelError))
}

func TestStream_BackendErrorRecord(t *testing.T) {
	srv := httptest.NewServer((&fakeOllama{writes: []string{
		`{"response":"ok"}` + "\n", `{"error":"out of memory"}` + "\n",
	}}).handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	s, err := client.OpenGenerate(context.Background(), "p", "m", nil)
	require.NoError(t, err)

	got, err := s.Collect()
	assert.Equal(t, "ok", got)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "out of memory")
}

func TestStream_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":{"content":"first"}}`+"\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, rec := newTestClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	var got []string
	err := client.ChatStream(ctx, history("x"), "m", Handlers{
		OnChunk: func(text string) {
			got = append(got, text)
			cancel()
		},
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, got)
	assert.Empty(t, rec.Notices(), "cancellation is not reported")
}

// =============================================================================
// MODEL LIST / CONNECTION TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"models":[
			{"name":"llama3.2:latest","size":2019393189,"digest":"a80c4f17acd55265feec403c7aef86be0c25983ab279d83f3bcd3abbcb5b8b72","modified_at":"2024-10-01T10:00:00Z"},
			{"name":"qwen2.5:7b","size":4683087332,"digest":"845dbda0ea48","modified_at":"2024-11-02T08:30:00Z"}
		]}`)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	models, err := client.ListModels(context.Background())

	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.2:latest", models[0].Name)
	assert.Equal(t, int64(2019393189), models[0].Size)
	assert.Equal(t, "a80c4f17acd5", models[0].ShortDigest())
	assert.Equal(t, "2.0 GB", models[0].FormatSize())
	assert.Equal(t, 2024, models[1].ModifiedAt.Year())
}

func TestListModels_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, rec := newTestClient(t, srv.URL)
	_, err := client.ListModels(context.Background())

	assert.True(t, IsTransport(err))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, 1, rec.Count(notify.LevelError))
}

func TestTestConnection(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"models":[]}`)
	}))
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	client, rec := newTestClient(t, ok.URL)
	assert.True(t, client.TestConnection(context.Background()))

	client.SetEndpoint(broken.URL)
	assert.False(t, client.TestConnection(context.Background()))
	assert.Empty(t, rec.Notices(), "a non-success answer is not a failure notice")

	client.SetEndpoint("http://127.0.0.1:1")
	assert.False(t, client.TestConnection(context.Background()))
	assert.Equal(t, 1, rec.Count(notify.LevelError))
}

func TestTestConnection_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ProbeTimeout = 50 * time.Millisecond
	client := NewClientWithConfig(cfg)

	start := time.Now()
	assert.False(t, client.TestConnection(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSetEndpoint(t *testing.T) {
	client := NewClient("http://localhost:11434/")
	assert.Equal(t, "http://localhost:11434", client.Endpoint())

	client.SetEndpoint(" http://gpu-box:11434// ")
	assert.Equal(t, "http://gpu-box:11434", client.Endpoint())
}

func TestSetEndpoint_DoesNotAffectOpenStream(t *testing.T) {
	srv := httptest.NewServer((&fakeOllama{writes: []string{
		`{"response":"still here"}` + "\n",
	}}).handler(t))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	s, err := client.OpenGenerate(context.Background(), "p", "m", nil)
	require.NoError(t, err)

	client.SetEndpoint("http://127.0.0.1:1")

	got, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, "still here", got)
}

// =============================================================================
// ERROR TYPE TESTS
// =============================================================================

func TestClientError(t *testing.T) {
	cause := errors.New("connection reset")
	err := newTransportError("stream interrupted", 0, cause)

	assert.Equal(t, "stream interrupted: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "TransportError", err.Type.String())
	assert.Equal(t, "StreamDecodeError", ErrTypeDecode.String())
	assert.False(t, IsTransport(errors.New("plain")))
}
