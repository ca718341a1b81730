// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var errBoom = errors.New("boom")

// manualSource is a Source whose time only moves when told to.
type manualSource struct {
	mu  sync.Mutex
	now time.Time
}

func newManualSource() *manualSource {
	return &manualSource{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *manualSource) Monotonic() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *manualSource) Wall() time.Time {
	return s.Monotonic()
}

func (s *manualSource) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
}

// fakeAuthority answers with source time shifted by skew, failing the first
// failFirst calls and every call while failing is set.
type fakeAuthority struct {
	source    Source
	skew      atomic.Int64
	failFirst int64
	failing   atomic.Bool
	block     atomic.Bool
	calls     atomic.Int64
}

func newFakeAuthority(source Source, skew time.Duration) *fakeAuthority {
	a := &fakeAuthority{source: source}
	a.skew.Store(int64(skew))
	return a
}

func (a *fakeAuthority) Name() string { return "fake" }

func (a *fakeAuthority) FetchTime(ctx context.Context) (time.Time, error) {
	n := a.calls.Add(1)
	if a.block.Load() {
		<-ctx.Done()
		return time.Time{}, ctx.Err()
	}
	if n <= a.failFirst || a.failing.Load() {
		return time.Time{}, errBoom
	}
	return a.source.Monotonic().Add(time.Duration(a.skew.Load())), nil
}

// recorder collects observed events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func testOptions() Options {
	return Options{
		Interval:               5 * time.Millisecond,
		PerAttemptTimeout:      50 * time.Millisecond,
		MaxRetries:             2,
		RetryBackoff:           time.Millisecond,
		BackoffMultiplier:      2,
		MaxBackoff:             4 * time.Millisecond,
		MaxAcceptableStaleness: time.Minute,
		RegressionPolicy:       RegressionAccept,
	}
}

func quietLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestSynchronizer(a Authority, c *Clock) *Synchronizer {
	return NewSynchronizer(a, c, WithLogger(quietLogger()))
}
