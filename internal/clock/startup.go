// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/clocksync/internal/log"
)

// Startup performs the initial synchronization that must succeed before any
// component reads the Clock.
type Startup struct {
	sync     *Synchronizer
	clock    *Clock
	observer Observer
	logger   zerolog.Logger
}

// NewStartup creates a Startup. A nil observer discards events.
func NewStartup(syncer *Synchronizer, clock *Clock, observer Observer, logger zerolog.Logger) *Startup {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Startup{
		sync:     syncer,
		clock:    clock,
		observer: observer,
		logger:   logger.With().Str(log.FieldComponent, "clock.startup").Logger(),
	}
}

// EnsureInitialClock runs one full synchronization with retries and publishes
// the result. On failure the clock stays uninitialized and the error wraps
// ErrStartupSync together with the underlying *SyncError.
func (s *Startup) EnsureInitialClock(ctx context.Context, opts Options) (Offset, error) {
	logger := log.WithContext(ctx, s.logger)

	off, err := s.sync.Synchronize(ctx, opts)
	if err != nil {
		attempts := 0
		if se, ok := asSyncError(err); ok {
			attempts = se.Attempts
		}
		s.observer.Observe(Event{
			Kind:     EventSyncFailed,
			At:       s.clock.Source().Monotonic(),
			Attempts: attempts,
			Err:      err,
		})
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "clock.startup_failed").
			Str(log.FieldAuthority, AuthorityName(s.sync.Authority())).
			Int(log.FieldAttempts, attempts).
			Msg("initial clock synchronization failed")
		return Offset{}, fmt.Errorf("%w: %w", ErrStartupSync, err)
	}

	if err := s.clock.Publish(off); err != nil {
		return Offset{}, fmt.Errorf("%w: %w", ErrStartupSync, err)
	}

	s.observer.Observe(Event{
		Kind:     EventSyncSucceeded,
		At:       off.MeasuredAtMonotonic,
		Offset:   off,
		Attempts: off.Attempts,
	})
	logger.Info().
		Str(log.FieldEvent, "clock.initialized").
		Str(log.FieldAuthority, off.Authority).
		Dur(log.FieldOffset, off.Delta).
		Dur("round_trip", off.RoundTrip).
		Int(log.FieldAttempts, off.Attempts).
		Uint64(log.FieldSequence, off.Sequence).
		Msg("clock initialized")
	return off, nil
}
