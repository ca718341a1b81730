// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Clock attributes
	ClockAuthorityKey  = "clock.authority"
	ClockAttemptKey    = "clock.attempt"
	ClockAttemptsKey   = "clock.attempts"
	ClockMaxRetriesKey = "clock.max_retries"
	ClockOffsetKey     = "clock.offset_ms"
	ClockSequenceKey   = "clock.sequence"
	ClockRoundTripKey  = "clock.round_trip_ms"
	ClockRetryKey      = "clock.retry"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SyncAttributes describes a synchronization run.
func SyncAttributes(authority string, maxRetries int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ClockAuthorityKey, authority),
		attribute.Int(ClockMaxRetriesKey, maxRetries),
	}
}

// AttemptAttributes describes a single authority query.
func AttemptAttributes(attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ClockAttemptKey, attempt),
		attribute.Bool(ClockRetryKey, attempt > 1),
	}
}

// OffsetAttributes describes a measured offset.
func OffsetAttributes(delta, roundTrip time.Duration, sequence uint64, attempts int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(ClockOffsetKey, delta.Milliseconds()),
		attribute.Int64(ClockRoundTripKey, roundTrip.Milliseconds()),
		attribute.Int64(ClockSequenceKey, int64(sequence)),
		attribute.Int(ClockAttemptsKey, attempts),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
