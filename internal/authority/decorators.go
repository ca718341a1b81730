// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/metrics"
	"github.com/ManuGH/clocksync/internal/resilience"
)

var errCircuitOpen = resilience.ErrCircuitOpen

// Authority is a clock.Authority that owns releasable resources.
type Authority interface {
	clock.Authority
	clock.Named
	io.Closer
}

type breakerAuthority struct {
	Authority
	cb *resilience.CircuitBreaker
}

// WithCircuitBreaker fails fast with ErrUnreachable while the breaker is open.
// Cancellations do not count as failures.
func WithCircuitBreaker(a Authority, threshold int, resetTimeout time.Duration) Authority {
	cb := resilience.NewCircuitBreaker(a.Name(), threshold, resetTimeout,
		resilience.WithFailureFilter(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
	)
	return &breakerAuthority{Authority: a, cb: cb}
}

func (b *breakerAuthority) FetchTime(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := b.cb.Execute(func() error {
		var err error
		t, err = b.Authority.FetchTime(ctx)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return time.Time{}, Unreachable(b.Name(), err)
	}
	return t, err
}

type meteredAuthority struct {
	Authority
}

// WithMetrics records the outcome and latency of every query.
func WithMetrics(a Authority) Authority {
	return &meteredAuthority{Authority: a}
}

func (m *meteredAuthority) FetchTime(ctx context.Context) (time.Time, error) {
	start := time.Now()
	t, err := m.Authority.FetchTime(ctx)
	metrics.RecordAuthorityRequest(m.Name(), outcome(err), time.Since(start))
	return t, err
}
