// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import "time"

// EventKind identifies a synchronization event.
type EventKind string

const (
	EventSyncSucceeded  EventKind = "sync_succeeded"
	EventSyncFailed     EventKind = "sync_failed"
	EventClockDegraded  EventKind = "clock_degraded"
	EventClockRecovered EventKind = "clock_recovered"
)

// Event is emitted by Startup and Watchdog after every synchronization
// outcome and on staleness transitions.
type Event struct {
	Kind EventKind

	// At is the local monotonic time the event was produced.
	At time.Time

	// Offset is the published offset for success events and the current
	// offset (possibly zero) otherwise.
	Offset Offset

	// Attempts is the number of authority queries of the cycle.
	Attempts int

	// Err is the cycle error for EventSyncFailed.
	Err error

	// SinceLastSuccess is the age of the current offset; zero when uninitialized.
	SinceLastSuccess time.Duration

	// ConsecutiveFailures counts failed cycles since the last success.
	ConsecutiveFailures int
}

// Observer receives synchronization events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// MultiObserver fans an event out to every non-nil observer in order.
type MultiObserver []Observer

func (m MultiObserver) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
