// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/conversation"
	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/session"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeOllama serves /api/tags, /api/chat and /api/generate. Both streaming
// endpoints answer "Hi", " there" as separate flushed records.
type fakeOllama struct {
	mu     sync.Mutex
	bodies map[string]map[string]any
	models string
}

func newFakeOllama(t *testing.T) (*fakeOllama, *httptest.Server) {
	f := &fakeOllama{
		bodies: make(map[string]map[string]any),
		models: `{"models":[` +
			`{"name":"llama3.2:latest","size":2019393189,"modified_at":"2025-03-01T10:00:00Z","details":{"parameter_size":"3.2B"}},` +
			`{"name":"qwen2.5-coder:7b","size":4683087332,"modified_at":"2025-02-01T10:00:00Z","details":{"parameter_size":"7.6B"}}]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, f.models)
			return
		}

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.bodies[r.URL.Path] = body
		f.mu.Unlock()

		var records []string
		switch r.URL.Path {
		case "/api/chat":
			records = []string{
				`{"message":{"role":"assistant","content":"Hi"},"done":false}`,
				`{"message":{"role":"assistant","content":" there"},"done":false}`,
				`{"message":{"role":"assistant","content":""},"done":true}`,
			}
		case "/api/generate":
			records = []string{
				`{"response":"Hi","done":false}`,
				`{"response":" there","done":false}`,
				`{"response":"","done":true}`,
			}
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, rec := range records {
			io.WriteString(w, rec+"\n")
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeOllama) body(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

// isolate points OLLACHAT_HOME at a temp dir and clears overrides from
// the environment. It returns the config path.
func isolate(t *testing.T) string {
	home := t.TempDir()
	t.Setenv("OLLACHAT_HOME", home)
	for _, k := range []string{
		"OLLACHAT_OLLAMA_URL", "OLLAMA_HOST", "OLLACHAT_MODEL", "OLLACHAT_TEMPERATURE",
		"OLLACHAT_MAX_TOKENS", "OLLACHAT_SYSTEM_PROMPT", "OLLACHAT_STORAGE",
		"OLLACHAT_LOG_LEVEL", "OLLACHAT_TELEMETRY", "TMUX",
	} {
		t.Setenv(k, "")
	}
	return filepath.Join(home, "config.toml")
}

type result struct {
	stdout string
	stderr string
	code   int
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), append([]string{"--no-color"}, args...), strings.NewReader(stdin), &out, &errOut)
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

func newTestApp(t *testing.T, cfgPath, url string) *App {
	t.Helper()
	var stderr bytes.Buffer
	app, err := NewApp(context.Background(), &Options{ConfigPath: cfgPath, URL: url}, &stderr)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close(context.Background()) })
	return app
}

func newTestREPL(app *App) (*repl, *bytes.Buffer) {
	var out bytes.Buffer
	r := newREPL(app, strings.NewReader(""), &out)
	r.confirm = func(string) (bool, error) { return true, nil }
	r.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	return r, &out
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	invalid := config.DefaultSettings()
	invalid.Temperature = 5

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitError},
		{"usage", NewUsageError("bad", ""), ExitUsage},
		{"explicit code", &CommandError{Command: "ping", Code: ExitNotRunning}, ExitNotRunning},
		{"cancelled", fmt.Errorf("stream: %w", context.Canceled), ExitCancelled},
		{"validation", config.Validate(invalid).Err(), ExitConfig},
		{"transport", &ollama.ClientError{Type: ollama.ErrTypeTransport, Message: "connection refused"}, ExitNotRunning},
		{"not found", fmt.Errorf("resolve: %w", conversation.ErrNotFound), ExitNotFound},
		{"ambiguous", conversation.ErrAmbiguous, ExitNotFound},
		{"no model", session.ErrNoModel, ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestDisplayError_Hints(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "ping", &CommandError{Command: "ping", Action: "connect", Reason: "refused", Code: ExitNotRunning}, false)
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "ollama serve")

	buf.Reset()
	DisplayError(&buf, "ask", NewUsageError("no question given", ""), true)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "no question given")
	assert.Equal(t, ExitUsage, resp.ExitCode)
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestPing(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)

	res := runCLI(t, "", "--config", cfg, "--url", srv.URL, "ping")
	assert.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[OK]")
	assert.Contains(t, res.stdout, srv.URL)
}

func TestPing_NotRunning(t *testing.T) {
	cfg := isolate(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := runCLI(t, "", "--config", cfg, "--url", url, "ping")
	assert.Equal(t, ExitNotRunning, res.code)
	assert.Contains(t, res.stdout, "[FAIL]")
	assert.Contains(t, res.stderr, "ollama serve")
}

func TestModels(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)

	res := runCLI(t, "", "--config", cfg, "--url", srv.URL, "models")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "llama3.2:latest")
	assert.Contains(t, res.stdout, "qwen2.5-coder:7b")
	assert.Contains(t, res.stdout, "3.2B")

	res = runCLI(t, "", "--config", cfg, "--url", srv.URL, "--json", "models")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.True(t, resp.Success)
}

func TestModelsSelect(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)

	res := runCLI(t, "", "--config", cfg, "--url", srv.URL, "models", "select", "qwen2.5-coder:7b")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	res = runCLI(t, "", "--config", cfg, "config", "get", "model")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "qwen2.5-coder:7b\n", res.stdout)

	res = runCLI(t, "", "--config", cfg, "--url", srv.URL, "models", "select", "mistral")
	assert.Equal(t, ExitNotFound, res.code)
}

func TestAsk_StreamsGenerateReply(t *testing.T) {
	cfg := isolate(t)
	fake, srv := newFakeOllama(t)

	res := runCLI(t, "", "--config", cfg, "--url", srv.URL, "ask", "Hello")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Hi there\n", res.stdout)

	body := fake.body("/api/generate")
	require.NotNil(t, body)
	assert.Equal(t, "Hello", body["prompt"])
	assert.Equal(t, "llama3.2:latest", body["model"])
	assert.Equal(t, true, body["stream"])

	// ask without --save leaves the conversation list alone
	res = runCLI(t, "", "--config", cfg, "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No conversations yet.")
}

func TestAsk_SaveKeepsConversation(t *testing.T) {
	cfg := isolate(t)
	fake, srv := newFakeOllama(t)

	res := runCLI(t, "", "--config", cfg, "--url", srv.URL, "--json", "ask", "--save", "Hello")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var resp struct {
		Success bool      `json:"success"`
		Data    AskResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Hi there", resp.Data.Response)
	assert.Equal(t, 2, resp.Data.Chunks)
	require.NotNil(t, fake.body("/api/chat"))

	res = runCLI(t, "", "--config", cfg, "--json", "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var list struct {
		Data []ConversationSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Hello", list.Data[0].Title)
	assert.Equal(t, 2, list.Data[0].Messages)
	assert.True(t, list.Data[0].Active)
}

func TestAsk_NoQuestion(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)

	res := runCLI(t, "", "--config", cfg, "--url", srv.URL, "ask")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "no question given")
}

func TestAskPrompt(t *testing.T) {
	p, err := askPrompt([]string{"Review", "this:"}, strings.NewReader("func main() {}\n"))
	require.NoError(t, err)
	assert.Equal(t, "Review this:\n\nfunc main() {}", p)

	p, err = askPrompt(nil, strings.NewReader("just stdin"))
	require.NoError(t, err)
	assert.Equal(t, "just stdin", p)

	_, err = askPrompt(nil, strings.NewReader("  \n"))
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)
}

func TestChat_HiThere(t *testing.T) {
	cfg := isolate(t)
	fake, srv := newFakeOllama(t)

	res := runCLI(t, "Hi\n/list\n/quit\n", "--config", cfg, "--url", srv.URL, "chat")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Hi there")
	assert.Contains(t, res.stdout, "2 chunks in")
	assert.Contains(t, res.stdout, "2 msgs")

	body := fake.body("/api/chat")
	require.NotNil(t, body)
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	last := msgs[len(msgs)-1].(map[string]any)
	assert.Equal(t, "user", last["role"])
	assert.Equal(t, "Hi", last["content"])

	// The exchange survives the process
	res = runCLI(t, "", "--config", cfg, "conversations", "show", "--raw")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Hi there")
}

func TestConversationsLifecycle(t *testing.T) {
	cfg := isolate(t)

	res := runCLI(t, "", "--config", cfg, "conversations", "new", "Go questions")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Created")

	res = runCLI(t, "", "--config", cfg, "conversations", "new", "Rust questions")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	res = runCLI(t, "", "--config", cfg, "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Go questions")
	assert.Contains(t, res.stdout, "Rust questions")

	res = runCLI(t, "", "--config", cfg, "conversations", "search", "rust")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Rust questions")
	assert.NotContains(t, res.stdout, "Go questions")

	// Without a terminal and without --yes, deletion refuses
	res = runCLI(t, "", "--config", cfg, "conversations", "delete", "1")
	assert.Equal(t, ExitUsage, res.code)

	res = runCLI(t, "", "--config", cfg, "conversations", "delete", "1", "--yes")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Deleted")

	res = runCLI(t, "", "--config", cfg, "conversations", "use", "42")
	assert.Equal(t, ExitNotFound, res.code)

	res = runCLI(t, "", "--config", cfg, "conversations", "clear", "--yes")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Deleted 1 conversations")
}

func TestConfigSetGet(t *testing.T) {
	cfg := isolate(t)

	res := runCLI(t, "", "--config", cfg, "config", "set", "temperature", "0.3")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	res = runCLI(t, "", "--config", cfg, "config", "get", "temperature")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "0.3\n", res.stdout)

	res = runCLI(t, "", "--config", cfg, "config", "set", "system_prompt", "Answer", "briefly.")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	res = runCLI(t, "", "--config", cfg, "config", "get", "system_prompt")
	assert.Equal(t, "Answer briefly.\n", res.stdout)
}

func TestConfigSet_Rejected(t *testing.T) {
	cfg := isolate(t)

	res := runCLI(t, "", "--config", cfg, "config", "set", "temperature", "5")
	assert.Equal(t, ExitConfig, res.code)
	assert.Contains(t, res.stderr, "temperature")

	res = runCLI(t, "", "--config", cfg, "config", "set", "colour", "blue")
	assert.Equal(t, ExitUsage, res.code)

	res = runCLI(t, "", "--config", cfg, "config", "get", "temperature")
	assert.Equal(t, "0.7\n", res.stdout)
}

func TestConfigInitAndValidate(t *testing.T) {
	cfg := isolate(t)

	res := runCLI(t, "", "--config", cfg, "config", "init")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.FileExists(t, cfg)

	res = runCLI(t, "", "config", "validate", cfg)
	assert.Equal(t, ExitSuccess, res.code, res.stderr)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[settings]\nmax_tokens = -4\n"), 0600))
	res = runCLI(t, "", "config", "validate", bad)
	assert.Equal(t, ExitConfig, res.code)
}

func TestInvalidURLOverride(t *testing.T) {
	cfg := isolate(t)

	res := runCLI(t, "", "--config", cfg, "--url", "ftp://nowhere", "ping")
	assert.Equal(t, ExitConfig, res.code)
	assert.Contains(t, res.stderr, "invalid override")
}

func TestExportImportArchive(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)
	dir := t.TempDir()

	res := runCLI(t, "", "--config", cfg, "--url", srv.URL, "ask", "--save", "Hello")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	res = runCLI(t, "", "--config", cfg, "export", "--all", "-o", dir)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(dir, ArchiveFile))

	res = runCLI(t, "", "--config", cfg, "export", "--stdout")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "# Hello")
	assert.Contains(t, res.stdout, "Hi there")

	other := isolate(t)
	res = runCLI(t, "", "--config", other, "import", "--activate", filepath.Join(dir, ArchiveFile))
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Imported 1 conversations")

	res = runCLI(t, "", "--config", other, "conversations", "list")
	assert.Contains(t, res.stdout, "Hello")
}

func TestDoctor(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)

	checks := runChecks(context.Background(), cfg, config.SettingsPatch{OllamaURL: &srv.URL}, func(string) (string, error) {
		return "", errors.New("not found")
	})
	byName := make(map[string]*HealthCheck)
	for _, c := range checks {
		byName[c.Name] = c
	}
	assert.Equal(t, CheckPass, byName["Config Valid"].Status)
	assert.Equal(t, CheckWarn, byName["Ollama Installed"].Status)
	assert.Equal(t, CheckPass, byName["Ollama Running"].Status)
	assert.Equal(t, CheckPass, byName["Model Available"].Status)
	assert.Equal(t, CheckPass, byName["Storage Writable"].Status)

	missing := "mistral"
	checks = runChecks(context.Background(), cfg, config.SettingsPatch{OllamaURL: &srv.URL, Model: &missing}, func(string) (string, error) {
		return "/usr/local/bin/ollama", nil
	})
	for _, c := range checks {
		if c.Name == "Model Available" {
			assert.Equal(t, CheckWarn, c.Status)
			assert.Equal(t, "Run: ollama pull mistral", c.Fix)
		}
	}
}

// =============================================================================
// REPL
// =============================================================================

func TestREPL_SendAndSlashCommands(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)
	app := newTestApp(t, cfg, srv.URL)
	r, out := newTestREPL(app)
	ctx := context.Background()

	quit, err := r.handle(ctx, "Hi")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "Hi there")

	first := app.Conversations.ActiveID()
	require.NotEmpty(t, first)
	conv := app.Conversations.Get(first)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hi there", conv.Messages[1].Content)
	assert.Equal(t, "Hi", conv.Title)

	_, err = r.handle(ctx, "/new")
	require.NoError(t, err)
	assert.NotEqual(t, first, app.Conversations.ActiveID())
	assert.Equal(t, 2, app.Conversations.Len())

	out.Reset()
	_, err = r.handle(ctx, "/list")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "New Conversation")
	assert.Contains(t, out.String(), "Hi")

	out.Reset()
	_, err = r.handle(ctx, "/switch "+shortID(first))
	require.NoError(t, err)
	assert.Equal(t, first, app.Conversations.ActiveID())
	assert.Contains(t, out.String(), "Switched to")

	_, err = r.handle(ctx, "/rename Greetings")
	require.NoError(t, err)
	assert.Equal(t, "Greetings", app.Conversations.Active().Title)

	_, err = r.handle(ctx, "/set temperature 0.2")
	require.NoError(t, err)
	assert.Equal(t, 0.2, app.Settings.Get().Temperature)

	_, err = r.handle(ctx, "/set temperature 9")
	var verrs config.ValidateErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Equal(t, 0.2, app.Settings.Get().Temperature)

	_, err = r.handle(ctx, "/model qwen2.5-coder:7b")
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-coder:7b", app.Settings.Get().Model)

	_, err = r.handle(ctx, "/delete")
	require.NoError(t, err)
	assert.Empty(t, app.Conversations.ActiveID())
	assert.Equal(t, 1, app.Conversations.Len())

	quit, err = r.handle(ctx, "/quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestREPL_UnknownCommand(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)
	r, _ := newTestREPL(newTestApp(t, cfg, srv.URL))

	_, err := r.handle(context.Background(), "/swtich 2")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "did you mean /switch?")

	_, err = r.handle(context.Background(), "/xyzzy")
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "unknown command: /xyzzy", usage.Message)
}

func TestREPL_ShowErrorSkipsNotifiedFailures(t *testing.T) {
	cfg := isolate(t)
	_, srv := newFakeOllama(t)
	r, out := newTestREPL(newTestApp(t, cfg, srv.URL))

	r.showError(&ollama.ClientError{Type: ollama.ErrTypeTransport, Message: "HTTP 500"})
	assert.Empty(t, out.String())

	r.showError(conversation.ErrNotFound)
	assert.Contains(t, out.String(), "conversation not found")
}

func TestSuggestSlashCommand(t *testing.T) {
	assert.Equal(t, "help", SuggestSlashCommand("hlep"))
	assert.Equal(t, "export", SuggestSlashCommand("exprot"))
	assert.Equal(t, "", SuggestSlashCommand("x"))
	assert.Equal(t, "", SuggestSlashCommand("help"))
	assert.Equal(t, "", SuggestSlashCommand("completely-different"))
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func TestWriteModelList(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	models := []ollama.ModelInfo{
		{Name: "llama3.2:latest", Size: 2019393189, ModifiedAt: now.Add(-48 * time.Hour), Details: ollama.ModelDetails{ParameterSize: "3.2B"}},
		{Name: "qwen2.5-coder:7b", Size: 4683087332},
	}

	var buf bytes.Buffer
	writeModelList(&buf, models, "qwen2.5-coder:7b", now)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.True(t, strings.HasPrefix(lines[1], "  llama3.2:latest"))
	assert.Contains(t, lines[1], "2.0 GB")
	assert.Contains(t, lines[1], "2 days ago")
	assert.True(t, strings.HasPrefix(lines[2], "* qwen2.5-coder:7b"))

	buf.Reset()
	writeModelList(&buf, nil, "", now)
	assert.Contains(t, buf.String(), "ollama pull")
}

func TestPicker_EnterSelects(t *testing.T) {
	models := []ollama.ModelInfo{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	m := newPicker(models, "b")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "b", next.(pickerModel).choice)
	require.NotNil(t, cmd)

	m = newPicker(models, "b")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.(pickerModel).Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "c", next.(pickerModel).choice)

	next, _ = newPicker(models, "").Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, next.(pickerModel).choice)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "250ms", formatElapsed(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatElapsed(1500*time.Millisecond))
}
