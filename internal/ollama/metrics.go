// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jeranaias/ollachat/internal/ollama"

// streamMetrics holds the instruments recorded when a stream ends. They come
// from the global providers, so they start reporting once telemetry is set
// up even if the client was built earlier.
type streamMetrics struct {
	requests   metric.Int64Counter
	chunks     metric.Int64Counter
	failures   metric.Int64Counter
	firstChunk metric.Float64Histogram
	duration   metric.Float64Histogram
}

func newStreamMetrics() *streamMetrics {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	m := &streamMetrics{}
	var err error
	if m.requests, err = meter.Int64Counter("ollachat.stream.requests",
		metric.WithDescription("Streaming requests opened")); err != nil {
		m.requests, _ = fallback.Int64Counter("ollachat.stream.requests")
	}
	if m.chunks, err = meter.Int64Counter("ollachat.stream.chunks",
		metric.WithDescription("Text increments delivered")); err != nil {
		m.chunks, _ = fallback.Int64Counter("ollachat.stream.chunks")
	}
	if m.failures, err = meter.Int64Counter("ollachat.stream.failures",
		metric.WithDescription("Streams that ended with an error")); err != nil {
		m.failures, _ = fallback.Int64Counter("ollachat.stream.failures")
	}
	if m.firstChunk, err = meter.Float64Histogram("ollachat.stream.first_chunk",
		metric.WithDescription("Time to first text increment"), metric.WithUnit("ms")); err != nil {
		m.firstChunk, _ = fallback.Float64Histogram("ollachat.stream.first_chunk")
	}
	if m.duration, err = meter.Float64Histogram("ollachat.stream.duration",
		metric.WithDescription("Total stream duration"), metric.WithUnit("ms")); err != nil {
		m.duration, _ = fallback.Float64Histogram("ollachat.stream.duration")
	}
	return m
}

func (m *streamMetrics) record(ctx context.Context, s *Stream) {
	attrs := metric.WithAttributes(
		attribute.String("ollama.mode", s.mode.String()),
		attribute.String("ollama.model", s.model),
	)
	m.requests.Add(ctx, 1, attrs)
	m.chunks.Add(ctx, int64(s.chunks), attrs)
	if s.err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
	if s.chunks > 0 {
		m.firstChunk.Record(ctx, float64(s.firstChunk.Microseconds())/1000, attrs)
	}
	m.duration.Record(ctx, float64(s.elapsed.Microseconds())/1000, attrs)
}

func newTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
