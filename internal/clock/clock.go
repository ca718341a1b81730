// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the read-facing synchronized clock.
//
// Reads are lock-free: the current Offset lives behind an atomic pointer and is
// replaced as a whole, so a reader observes either the old or the new offset,
// never a mix. Writers (Startup and Watchdog) are serialized.
//
// A Clock must be constructed and initialized through Startup before use;
// there is no implicit teardown.
type Clock struct {
	source       Source
	maxStaleness atomic.Int64

	current  atomic.Pointer[Offset]
	previous atomic.Pointer[Offset]

	writeMu sync.Mutex
}

// New creates an uninitialized Clock reading local time from source.
func New(source Source, maxStaleness time.Duration) *Clock {
	if source == nil {
		source = NewSystemSource()
	}
	c := &Clock{source: source}
	c.maxStaleness.Store(int64(maxStaleness))
	return c
}

// Now returns local monotonic time corrected by the published offset.
// It fails with ErrNotInitialized before the first Publish.
func (c *Clock) Now() (time.Time, error) {
	off := c.current.Load()
	if off == nil {
		return time.Time{}, ErrNotInitialized
	}
	// UTC strips the monotonic reading, which is meaningless once the delta is applied.
	return off.Apply(c.source.Monotonic()).UTC(), nil
}

// NowWithOffset returns the corrected time together with the offset it was
// derived from, both read from a single load of the published offset.
func (c *Clock) NowWithOffset() (time.Time, Offset, error) {
	off := c.current.Load()
	if off == nil {
		return time.Time{}, Offset{}, ErrNotInitialized
	}
	return off.Apply(c.source.Monotonic()).UTC(), *off, nil
}

// MustNow is like Now but panics when the clock is not initialized.
func (c *Clock) MustNow() time.Time {
	now, err := c.Now()
	if err != nil {
		panic(err)
	}
	return now
}

// CurrentOffset returns a copy of the published offset.
func (c *Clock) CurrentOffset() (Offset, error) {
	off := c.current.Load()
	if off == nil {
		return Offset{}, ErrNotInitialized
	}
	return *off, nil
}

// PreviousOffset returns the offset replaced by the latest Publish, if any.
func (c *Clock) PreviousOffset() (Offset, bool) {
	off := c.previous.Load()
	if off == nil {
		return Offset{}, false
	}
	return *off, true
}

// Initialized reports whether an offset has been published.
func (c *Clock) Initialized() bool {
	return c.current.Load() != nil
}

// Publish atomically replaces the current offset. The sequence must advance.
func (c *Clock) Publish(off Offset) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := c.current.Load()
	if cur != nil && off.Sequence <= cur.Sequence {
		return fmt.Errorf("%w: current %d, got %d", ErrOffsetOutOfOrder, cur.Sequence, off.Sequence)
	}

	next := off
	c.previous.Store(cur)
	c.current.Store(&next)
	return nil
}

// IsStale reports whether more than the staleness threshold has elapsed
// between the last successful measurement and asOfMonotonic. Exactly at the
// threshold the clock is still fresh. An uninitialized clock is always stale.
func (c *Clock) IsStale(asOfMonotonic time.Time) bool {
	off := c.current.Load()
	if off == nil {
		return true
	}
	return off.Age(asOfMonotonic) > c.MaxStaleness()
}

// Stale is IsStale evaluated at the current local monotonic time.
func (c *Clock) Stale() bool {
	return c.IsStale(c.source.Monotonic())
}

// Staleness returns the age of the published offset.
func (c *Clock) Staleness() (time.Duration, error) {
	off := c.current.Load()
	if off == nil {
		return 0, ErrNotInitialized
	}
	return off.Age(c.source.Monotonic()), nil
}

// MaxStaleness returns the staleness threshold.
func (c *Clock) MaxStaleness() time.Duration {
	return time.Duration(c.maxStaleness.Load())
}

// SetMaxStaleness replaces the staleness threshold.
func (c *Clock) SetMaxStaleness(d time.Duration) {
	c.maxStaleness.Store(int64(d))
}

// Source returns the local time source.
func (c *Clock) Source() Source {
	return c.source
}
