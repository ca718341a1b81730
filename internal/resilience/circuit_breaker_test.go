// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTime struct {
	now time.Time
}

func (m *mockTime) Now() time.Time { return m.now }

var errUpstream = errors.New("upstream down")

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	ts := &mockTime{now: time.Now()}
	cb := NewCircuitBreaker("test", 3, 10*time.Second, WithTimeSource(ts))

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, cb.Execute(fail), errUpstream)
		assert.Equal(t, StateClosed, cb.State())
	}
	require.ErrorIs(t, cb.Execute(fail), errUpstream)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Second)

	_ = cb.Execute(fail)
	require.NoError(t, cb.Execute(succeed))
	_ = cb.Execute(fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	ts := &mockTime{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, 10*time.Second, WithTimeSource(ts))

	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.State())

	ts.now = ts.now.Add(10 * time.Second)
	require.ErrorIs(t, cb.Execute(succeed), ErrCircuitOpen, "reset timeout is exclusive")

	ts.now = ts.now.Add(time.Millisecond)
	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.State(), "failed probe reopens")

	ts.now = ts.now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_SingleProbeInHalfOpen(t *testing.T) {
	ts := &mockTime{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, time.Second, WithTimeSource(ts))
	_ = cb.Execute(fail)
	ts.now = ts.now.Add(2 * time.Second)

	probeStarted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted
	require.ErrorIs(t, cb.Execute(succeed), ErrCircuitOpen)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailureFilter(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Second, WithFailureFilter(func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}))

	require.ErrorIs(t, cb.Execute(func() error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("defaults", 0, 0)
	assert.Equal(t, 3, cb.threshold)
	assert.Equal(t, 30*time.Second, cb.resetTimeout)
	assert.Equal(t, "defaults", cb.Name())
}
