// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/clocksync/internal/log"
	"github.com/ManuGH/clocksync/internal/metrics"
)

// LogObserver writes events to a zerolog logger. Degraded warnings are
// throttled to one per interval while the clock stays stale.
type LogObserver struct {
	logger   zerolog.Logger
	interval time.Duration

	mu       sync.Mutex
	degraded *rate.Sometimes
}

// NewLogObserver creates a LogObserver. A non-positive interval logs every
// degraded event.
func NewLogObserver(logger zerolog.Logger, degradedInterval time.Duration) *LogObserver {
	return &LogObserver{
		logger:   logger.With().Str(log.FieldComponent, "clock.events").Logger(),
		interval: degradedInterval,
		degraded: &rate.Sometimes{First: 1, Interval: degradedInterval},
	}
}

// SetDegradedInterval changes the throttle interval for degraded warnings.
// The next degraded event is logged immediately.
func (o *LogObserver) SetDegradedInterval(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interval = d
	o.degraded = &rate.Sometimes{First: 1, Interval: d}
}

func (o *LogObserver) Observe(e Event) {
	switch e.Kind {
	case EventSyncSucceeded:
		o.logger.Debug().
			Str(log.FieldEvent, "clock.sync_succeeded").
			Str(log.FieldAuthority, e.Offset.Authority).
			Dur(log.FieldOffset, e.Offset.Delta).
			Uint64(log.FieldSequence, e.Offset.Sequence).
			Int(log.FieldAttempts, e.Attempts).
			Bool("clamped", e.Offset.Clamped).
			Msg("clock synchronized")
	case EventSyncFailed:
		o.logger.Debug().
			Err(e.Err).
			Str(log.FieldEvent, "clock.sync_failed").
			Int(log.FieldAttempts, e.Attempts).
			Int("consecutive_failures", e.ConsecutiveFailures).
			Msg("clock synchronization failed")
	case EventClockDegraded:
		o.mu.Lock()
		limiter := o.degraded
		o.mu.Unlock()
		limiter.Do(func() {
			o.logger.Warn().
				Err(e.Err).
				Str(log.FieldEvent, "clock.degraded").
				Dur("since_last_success", e.SinceLastSuccess).
				Int("consecutive_failures", e.ConsecutiveFailures).
				Msg("clock offset is stale")
		})
	case EventClockRecovered:
		o.mu.Lock()
		o.degraded = &rate.Sometimes{First: 1, Interval: o.interval}
		o.mu.Unlock()
		o.logger.Info().
			Str(log.FieldEvent, "clock.recovered").
			Dur(log.FieldOffset, e.Offset.Delta).
			Uint64(log.FieldSequence, e.Offset.Sequence).
			Msg("clock recovered")
	}
}

// MetricsObserver exports events as Prometheus metrics.
type MetricsObserver struct {
	clock     *Clock
	authority string
}

// NewMetricsObserver creates a MetricsObserver for the given clock.
func NewMetricsObserver(clock *Clock, authority string) *MetricsObserver {
	return &MetricsObserver{clock: clock, authority: authority}
}

func (o *MetricsObserver) Observe(e Event) {
	switch e.Kind {
	case EventSyncSucceeded:
		metrics.RecordClockSync(o.authority, true, e.Attempts, e.Offset.RoundTrip)
		metrics.SetClockOffset(e.Offset.Delta, e.Offset.Sequence, e.Offset.Apply(e.Offset.MeasuredAtMonotonic))
		metrics.SetClockConsecutiveFailures(0)
		metrics.SetClockDegraded(o.clock.Stale())
		if e.Offset.Clamped {
			metrics.IncClockRegression("clamped")
		}
	case EventSyncFailed:
		metrics.RecordClockSync(o.authority, false, e.Attempts, 0)
		metrics.SetClockConsecutiveFailures(e.ConsecutiveFailures)
		if errors.Is(e.Err, ErrClockRegression) {
			metrics.IncClockRegression("rejected")
		}
	case EventClockDegraded:
		metrics.SetClockDegraded(true)
	case EventClockRecovered:
		metrics.SetClockDegraded(false)
	}
}
