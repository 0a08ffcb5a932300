// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/notify"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is where a stock Ollama install listens.
	DefaultBaseURL = "http://localhost:11434"

	// ConnectionProbeTimeout bounds TestConnection.
	ConnectionProbeTimeout = 5 * time.Second
)

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// ProbeTimeout bounds TestConnection (default: 5s)
	ProbeTimeout time.Duration

	// ReadBufferSize is the size of each response body read (default: 4096)
	ReadBufferSize int

	// HTTPClient performs streaming requests. It should have no overall
	// timeout; streams are bounded by their context instead.
	HTTPClient *http.Client

	// Notifier receives a notice for every failed operation.
	Notifier notify.Notifier

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        DefaultBaseURL,
		Timeout:        30 * time.Second,
		ProbeTimeout:   ConnectionProbeTimeout,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an Ollama server. Its only mutable state is the endpoint,
// so a single Client can serve concurrent streams for different
// conversations.
//
// Example:
//
//	client := ollama.NewClient("http://localhost:11434")
//	err := client.ChatStream(ctx, conv.Messages, "llama3.2", ollama.Handlers{
//	    OnChunk: func(text string) { fmt.Print(text) },
//	}, nil)
type Client struct {
	mu      sync.RWMutex
	baseURL string

	config     *ClientConfig
	httpClient *http.Client
	rest       *resty.Client
	notifier   notify.Notifier
	log        *zap.Logger
	tracer     trace.Tracer
	metrics    *streamMetrics
}

// NewClient creates a client for baseURL with default configuration.
func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = ConnectionProbeTimeout
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = DefaultReadBufferSize
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		// Local server over plain HTTP; no overall timeout for streams.
		httpClient = &http.Client{}
	}
	notifier := config.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    normalizeEndpoint(config.BaseURL),
		config:     config,
		httpClient: httpClient,
		rest:       resty.New().SetTimeout(config.Timeout),
		notifier:   notifier,
		log:        logger.Named("ollama"),
		tracer:     newTracer(),
		metrics:    newStreamMetrics(),
	}
}

// =============================================================================
// ENDPOINT
// =============================================================================

// SetEndpoint replaces the base URL for subsequent calls. Streams that are
// already open keep the URL they were opened with.
func (c *Client) SetEndpoint(url string) {
	url = normalizeEndpoint(url)
	c.mu.Lock()
	c.baseURL = url
	c.mu.Unlock()
	c.log.Debug("endpoint changed", zap.String("url", url))
}

// Endpoint returns the current base URL.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

func normalizeEndpoint(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// TestConnection probes /api/tags with a 5 second bound and reports whether
// the server answered with success. It never returns an error; network
// failures are reported to the notifier and come back as false.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	resp, err := c.rest.R().SetContext(ctx).Get(c.Endpoint() + "/api/tags")
	if err != nil {
		c.log.Debug("connection test failed", zap.Error(err))
		notify.Error(c.notifier, "Connection test failed", err)
		return false
	}
	return resp.IsSuccess()
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(c.Endpoint() + "/api/tags")
	if err != nil {
		return nil, c.reportFailure("Failed to list models",
			newTransportError("failed to list models", 0, err))
	}
	if resp.IsError() {
		return nil, c.reportFailure("Failed to list models",
			newTransportError(statusMessage("failed to list models", resp.Status(), resp.Body()), resp.StatusCode(), nil))
	}

	var result ListModelsResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, c.reportFailure("Failed to list models", newDecodeError(1, resp.Body(), err))
	}
	return result.Models, nil
}

// =============================================================================
// STREAMING
// =============================================================================

// GenerateStream runs a single-prompt generation and pushes each text
// increment to h.OnChunk. It returns once the response body ends.
func (c *Client) GenerateStream(ctx context.Context, prompt, modelName string, h Handlers, opts *RequestOptions) error {
	s, err := c.OpenGenerate(ctx, prompt, modelName, opts)
	if err != nil {
		return err
	}
	return s.Each(h)
}

// ChatStream runs a multi-turn chat over messages and pushes each text
// increment to h.OnChunk. Only role and content of each message are sent.
func (c *Client) ChatStream(ctx context.Context, messages []*model.Message, modelName string, h Handlers, opts *RequestOptions) error {
	s, err := c.OpenChat(ctx, messages, modelName, opts)
	if err != nil {
		return err
	}
	return s.Each(h)
}

// OpenGenerate starts a /api/generate stream and returns it for pulling.
func (c *Client) OpenGenerate(ctx context.Context, prompt, modelName string, opts *RequestOptions) (*Stream, error) {
	switch {
	case modelName == "":
		return nil, c.reportFailure("Streaming response failed", ErrEmptyModel)
	case prompt == "":
		return nil, c.reportFailure("Streaming response failed", ErrEmptyPrompt)
	}

	body := GenerateRequest{
		Model:   modelName,
		Prompt:  prompt,
		Stream:  true,
		System:  opts.system(),
		Options: opts.options(),
	}
	return c.open(ctx, ModeGenerate, modelName, body)
}

// OpenChat starts a /api/chat stream and returns it for pulling.
func (c *Client) OpenChat(ctx context.Context, messages []*model.Message, modelName string, opts *RequestOptions) (*Stream, error) {
	wire := ToWireMessages(messages)
	switch {
	case modelName == "":
		return nil, c.reportFailure("Chat streaming failed", ErrEmptyModel)
	case len(wire) == 0:
		return nil, c.reportFailure("Chat streaming failed", ErrNoMessages)
	}

	body := ChatRequest{
		Model:    modelName,
		Messages: wire,
		Stream:   true,
		System:   opts.system(),
		Options:  opts.options(),
	}
	return c.open(ctx, ModeChat, modelName, body)
}

func (c *Client) open(ctx context.Context, mode Mode, modelName string, body any) (*Stream, error) {
	notice := "Streaming response failed"
	if mode == ModeChat {
		notice = "Chat streaming failed"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, c.reportFailure(notice,
			&ClientError{Type: ErrTypeInvalidRequest, Message: "failed to marshal request", Cause: err})
	}

	url := c.Endpoint() + mode.path()
	ctx, span := c.tracer.Start(ctx, "ollama."+mode.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ollama.model", modelName),
			attribute.String("http.url", url),
		))

	fail := func(err error) (*Stream, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, c.reportFailure(notice, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fail(newTransportError("failed to create request", 0, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(ctxErr)
		}
		return fail(newTransportError("failed to reach "+c.Endpoint(), 0, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return fail(newTransportError(statusMessage("stream request failed", resp.Status, detail), resp.StatusCode, nil))
	}

	c.log.Debug("stream opened", zap.String("mode", mode.String()), zap.String("model", modelName))

	return newStream(ctx, mode, modelName, resp.Body, c.config.ReadBufferSize, func(s *Stream) {
		c.metrics.record(ctx, s)
		span.SetAttributes(
			attribute.Int("ollama.chunks", s.chunks),
			attribute.Bool("ollama.done", s.done),
		)
		if s.err != nil {
			span.RecordError(s.err)
			span.SetStatus(codes.Error, s.err.Error())
			c.reportFailure(notice, s.err)
		}
		span.End()
		c.log.Debug("stream finished",
			zap.String("mode", mode.String()),
			zap.String("model", s.model),
			zap.Int("chunks", s.chunks),
			zap.Duration("elapsed", s.elapsed),
			zap.Error(s.err))
	}), nil
}

// reportFailure surfaces err to the notifier and hands it back for
// returning. Cancellation by the caller is not a failure worth a notice.
func (c *Client) reportFailure(notice string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.log.Warn(notice, zap.Error(err))
	notify.Error(c.notifier, notice, err)
	return err
}

// statusMessage builds "prefix: 404 Not Found (model 'x' not found)" using
// the error body Ollama sends with failures when it parses.
func statusMessage(prefix, status string, body []byte) string {
	msg := prefix + ": " + status
	var apiErr apiError
	if len(body) > 0 && json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg += " (" + apiErr.Error + ")"
	}
	return msg
}
