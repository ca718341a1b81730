// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/clocksync/internal/clock"
)

type manualSource struct {
	mu  sync.Mutex
	now time.Time
}

func (s *manualSource) Monotonic() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *manualSource) Wall() time.Time { return s.Monotonic() }

func (s *manualSource) advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
}

func TestClockChecker(t *testing.T) {
	src := &manualSource{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := clock.New(src, time.Minute)
	checker := NewClockChecker(c)
	assert.Equal(t, "clock", checker.Name())

	res := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, clock.ErrNotInitialized.Error())

	require.NoError(t, c.Publish(clock.Offset{
		Delta:               2 * time.Second,
		MeasuredAtMonotonic: src.Monotonic(),
		Sequence:            1,
		Authority:           "sql",
	}))
	res = checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Contains(t, res.Message, "sequence 1")

	// Exactly at the threshold the offset is still fresh.
	src.advance(time.Minute)
	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)

	src.advance(time.Millisecond)
	res = checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Message, "stale")
}

func TestClockChecker_GatesReadiness(t *testing.T) {
	src := &manualSource{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := clock.New(src, time.Minute)

	m := NewManager("test")
	m.RegisterChecker(NewClockChecker(c))
	assert.False(t, m.Ready(context.Background()).Ready)

	require.NoError(t, c.Publish(clock.Offset{MeasuredAtMonotonic: src.Monotonic(), Sequence: 1}))
	assert.True(t, m.Ready(context.Background()).Ready)

	// Stale is degraded, and degraded is still ready.
	src.advance(time.Hour)
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)
}

type fakeWatchdog struct {
	state    clock.WatchdogState
	failures int
}

func (f fakeWatchdog) State() clock.WatchdogState { return f.state }
func (f fakeWatchdog) ConsecutiveFailures() int   { return f.failures }

func TestWatchdogChecker(t *testing.T) {
	tests := []struct {
		name    string
		wd      fakeWatchdog
		want    Status
		message string
	}{
		{"not started", fakeWatchdog{state: clock.WatchdogNotStarted}, StatusDegraded, "not_started"},
		{"running", fakeWatchdog{state: clock.WatchdogRunning}, StatusHealthy, "running"},
		{"failing", fakeWatchdog{state: clock.WatchdogRunning, failures: 3}, StatusDegraded, "3 consecutive"},
		{"stopped", fakeWatchdog{state: clock.WatchdogStopped}, StatusDegraded, "stopped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewWatchdogChecker(tt.wd)
			assert.Equal(t, "watchdog", checker.Name())
			res := checker.Check(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Contains(t, res.Message, tt.message)
		})
	}
}
