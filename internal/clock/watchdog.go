// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/clocksync/internal/log"
)

// WatchdogState is the lifecycle state of a Watchdog.
type WatchdogState int32

const (
	WatchdogNotStarted WatchdogState = iota
	WatchdogRunning
	WatchdogStopped
)

func (s WatchdogState) String() string {
	switch s {
	case WatchdogNotStarted:
		return "not_started"
	case WatchdogRunning:
		return "running"
	case WatchdogStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WatchdogState(%d)", int32(s))
	}
}

// Watchdog periodically re-synchronizes the Clock.
//
// A failed cycle never clears the published offset: the clock keeps serving
// the last good value and only becomes stale. The watchdog itself never dies
// on authority failures, it just tries again at the next interval.
type Watchdog struct {
	sync     *Synchronizer
	clock    *Clock
	observer Observer
	logger   zerolog.Logger

	opts atomic.Pointer[Options]

	mu     sync.Mutex
	state  WatchdogState
	cancel context.CancelFunc
	done   chan struct{}

	failures    atomic.Int64
	lastSuccess atomic.Pointer[time.Time]
	degraded    atomic.Bool
}

// NewWatchdog creates a stopped watchdog. opts must be valid.
func NewWatchdog(syncer *Synchronizer, clock *Clock, opts Options, observer Observer, logger zerolog.Logger) (*Watchdog, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if observer == nil {
		observer = nopObserver{}
	}
	w := &Watchdog{
		sync:     syncer,
		clock:    clock,
		observer: observer,
		logger:   logger.With().Str(log.FieldComponent, "clock.watchdog").Logger(),
		done:     make(chan struct{}),
	}
	w.opts.Store(&opts)
	return w, nil
}

// Start launches the background loop. The loop stops when ctx is cancelled
// or Stop is called. Start may be called only once.
func (w *Watchdog) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WatchdogNotStarted {
		return ErrWatchdogStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.state = WatchdogRunning
	if off, err := w.clock.CurrentOffset(); err == nil {
		t := off.MeasuredAtMonotonic
		w.lastSuccess.Store(&t)
	}

	go w.run(runCtx)

	w.logger.Info().
		Str(log.FieldEvent, "clock.watchdog_started").
		Dur("interval", w.Options().Interval).
		Msg("clock watchdog started")
	return nil
}

// Stop cancels the loop and waits for it to exit or for ctx to expire.
// An in-flight attempt is abandoned and its result is never published.
// Stop is idempotent.
func (w *Watchdog) Stop(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case WatchdogNotStarted:
		w.state = WatchdogStopped
		close(w.done)
		w.mu.Unlock()
		return nil
	case WatchdogRunning:
		w.state = WatchdogStopped
		w.cancel()
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("clock watchdog stop: %w", ctx.Err())
	}
}

// Done is closed once the loop has exited.
func (w *Watchdog) Done() <-chan struct{} {
	return w.done
}

// State returns the current lifecycle state.
func (w *Watchdog) State() WatchdogState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Options returns the options used by the next cycle.
func (w *Watchdog) Options() Options {
	return *w.opts.Load()
}

// UpdateOptions replaces the options from the next cycle on and updates the
// clock staleness threshold.
func (w *Watchdog) UpdateOptions(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	w.opts.Store(&opts)
	w.clock.SetMaxStaleness(opts.MaxAcceptableStaleness)
	return nil
}

// ConsecutiveFailures returns the number of failed cycles since the last success.
func (w *Watchdog) ConsecutiveFailures() int {
	return int(w.failures.Load())
}

// LastSuccess returns the local monotonic time of the last published offset.
func (w *Watchdog) LastSuccess() (time.Time, bool) {
	t := w.lastSuccess.Load()
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func (w *Watchdog) run(ctx context.Context) {
	defer close(w.done)
	defer w.logger.Info().Str(log.FieldEvent, "clock.watchdog_stopped").Msg("clock watchdog stopped")

	for {
		if err := sleepContext(ctx, w.Options().Interval); err != nil {
			return
		}
		w.cycle(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}

// cycle performs one synchronization and publishes on success.
func (w *Watchdog) cycle(ctx context.Context) {
	opts := w.Options()
	ctx = log.ContextWithCorrelationID(ctx, uuid.NewString())
	logger := log.WithContext(ctx, w.logger)

	off, err := w.synchronize(ctx, opts)
	if ctx.Err() != nil {
		// Shutdown raced the cycle; results are discarded.
		return
	}

	if err == nil {
		err = w.clock.Publish(off)
	}

	if err == nil {
		w.failures.Store(0)
		t := off.MeasuredAtMonotonic
		w.lastSuccess.Store(&t)
		w.observer.Observe(Event{
			Kind:     EventSyncSucceeded,
			At:       t,
			Offset:   off,
			Attempts: off.Attempts,
		})
		if w.degraded.CompareAndSwap(true, false) {
			w.observer.Observe(Event{
				Kind:     EventClockRecovered,
				At:       t,
				Offset:   off,
				Attempts: off.Attempts,
			})
		}
		logger.Debug().
			Str(log.FieldEvent, "clock.resynced").
			Dur(log.FieldOffset, off.Delta).
			Uint64(log.FieldSequence, off.Sequence).
			Int(log.FieldAttempts, off.Attempts).
			Msg("clock resynchronized")
		return
	}

	failures := int(w.failures.Add(1))
	now := w.clock.Source().Monotonic()
	cur, _ := w.clock.CurrentOffset()
	var since time.Duration
	if !cur.IsZero() {
		since = cur.Age(now)
	}
	attempts := 0
	if se, ok := asSyncError(err); ok {
		attempts = se.Attempts
	}

	w.observer.Observe(Event{
		Kind:                EventSyncFailed,
		At:                  now,
		Offset:              cur,
		Attempts:            attempts,
		Err:                 err,
		SinceLastSuccess:    since,
		ConsecutiveFailures: failures,
	})
	logger.Warn().
		Err(err).
		Str(log.FieldEvent, "clock.resync_failed").
		Int("consecutive_failures", failures).
		Dur("since_last_success", since).
		Msg("clock resynchronization failed, serving last known offset")

	if w.clock.IsStale(now) {
		w.degraded.Store(true)
		w.observer.Observe(Event{
			Kind:                EventClockDegraded,
			At:                  now,
			Offset:              cur,
			Attempts:            attempts,
			Err:                 err,
			SinceLastSuccess:    since,
			ConsecutiveFailures: failures,
		})
	}
}

// synchronize converts a panicking authority into a failed cycle.
func (w *Watchdog) synchronize(ctx context.Context, opts Options) (off Offset, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SyncError{Attempts: 1, LastErr: fmt.Errorf("%w: panic: %v", ErrAuthorityProtocol, r)}
		}
	}()
	return w.sync.Synchronize(ctx, opts)
}
