// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/clocksync/internal/clock"
)

// ClockReader is the part of clock.Clock the checker needs.
type ClockReader interface {
	CurrentOffset() (clock.Offset, error)
	Staleness() (time.Duration, error)
	MaxStaleness() time.Duration
}

// ClockChecker reports the synchronized clock: unhealthy until the first
// offset is published, degraded while the offset is stale.
type ClockChecker struct {
	clock ClockReader
}

// NewClockChecker creates a checker for c.
func NewClockChecker(c ClockReader) *ClockChecker {
	return &ClockChecker{clock: c}
}

func (c *ClockChecker) Name() string { return "clock" }

func (c *ClockChecker) Check(_ context.Context) CheckResult {
	off, err := c.clock.CurrentOffset()
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "clock not synchronized yet",
			Error:   err.Error(),
		}
	}

	age, err := c.clock.Staleness()
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if limit := c.clock.MaxStaleness(); age > limit {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("offset is stale: last sync %s ago (limit %s)", age.Round(time.Millisecond), limit),
		}
	}

	return CheckResult{
		Status: StatusHealthy,
		Message: fmt.Sprintf("offset %s from %s (sequence %d)",
			off.Delta, off.Authority, off.Sequence),
	}
}

// WatchdogStatus is the part of clock.Watchdog the checker needs.
type WatchdogStatus interface {
	State() clock.WatchdogState
	ConsecutiveFailures() int
}

// WatchdogChecker reports whether background re-synchronization is running
// and succeeding. It never reports unhealthy: the clock keeps serving the
// last good offset while the watchdog retries.
type WatchdogChecker struct {
	watchdog WatchdogStatus
}

// NewWatchdogChecker creates a checker for w.
func NewWatchdogChecker(w WatchdogStatus) *WatchdogChecker {
	return &WatchdogChecker{watchdog: w}
}

func (c *WatchdogChecker) Name() string { return "watchdog" }

func (c *WatchdogChecker) Check(_ context.Context) CheckResult {
	state := c.watchdog.State()
	if state != clock.WatchdogRunning {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "watchdog " + state.String(),
		}
	}
	if n := c.watchdog.ConsecutiveFailures(); n > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d consecutive sync failures", n),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "watchdog running"}
}
