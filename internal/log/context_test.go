// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
	}{
		{name: "nil context", ctx: nil, requestID: "test-id-123"},
		{name: "background context", ctx: context.Background(), requestID: "req-456"},
		{name: "empty request ID", ctx: context.Background(), requestID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			assert.Equal(t, tt.requestID, RequestIDFromContext(ctx))
		})
	}
}

func TestIDsFromContextEmpty(t *testing.T) {
	var nilCtx context.Context
	assert.Empty(t, RequestIDFromContext(nilCtx))
	assert.Empty(t, CorrelationIDFromContext(nilCtx))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(context.WithValue(context.Background(), requestIDKey, 123)))
}

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithCorrelationID(ctx, "cycle-9")
	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry[FieldRequestID])
	assert.Equal(t, "cycle-9", entry[FieldCorrelationID])
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")
	entry := decodeLine(t, &buf)
	assert.NotContains(t, entry, FieldRequestID)
	assert.NotContains(t, entry, FieldTraceID)
}

func TestWithTraceContext_ValidSpan(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithTraceContext(ctx)
	l.Info().Msg("test with trace")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry[FieldTraceID])
	assert.Equal(t, "00f067aa0ba902b7", entry[FieldSpanID])
	assert.Equal(t, "clocksync", entry["service"])
}

func TestWithComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "svc", Version: "v1.2.3"})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithCorrelationID(context.Background(), "abc")
	l := WithComponentFromContext(ctx, "clock.watchdog")
	l.Info().Msg("tick")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "clock.watchdog", entry[FieldComponent])
	assert.Equal(t, "abc", entry[FieldCorrelationID])
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "v1.2.3", entry["version"])
}

func TestDerive(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Derive(nil)
	l.Info().Msg("nil builder")
	buf.Reset()

	l = Derive(func(ctx *zerolog.Context) {
		ctx.Str("custom_field", "test_value")
	})
	l.Info().Msg("custom")
	assert.Equal(t, "test_value", decodeLine(t, &buf)["custom_field"])
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	require.NoError(t, SetLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	require.Error(t, SetLevel("loud"))
}
