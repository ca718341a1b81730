// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clockSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clocksync_sync_total",
		Help: "Synchronization cycles by authority and outcome",
	}, []string{"authority", "outcome"}) // outcome=success|failure

	clockSyncAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clocksync_sync_attempts",
		Help:    "Authority queries needed per synchronization cycle",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 11},
	}, []string{"authority"})

	clockSyncRoundTrip = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clocksync_sync_round_trip_seconds",
		Help:    "Round trip of the successful authority query",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"authority"})

	clockOffsetSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clocksync_clock_offset_seconds",
		Help: "Published offset between authority time and local monotonic time",
	})

	clockSequence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clocksync_clock_sequence",
		Help: "Sequence number of the published offset",
	})

	clockLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clocksync_clock_last_success_timestamp_seconds",
		Help: "Corrected unix time of the last successful synchronization",
	})

	clockDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clocksync_clock_degraded",
		Help: "Whether the clock is serving a stale offset (1) or not (0)",
	})

	clockConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clocksync_clock_consecutive_failures",
		Help: "Failed synchronization cycles since the last success",
	})

	clockRegressionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clocksync_clock_regressions_total",
		Help: "Measurements that would move the clock backwards, by policy action",
	}, []string{"action"}) // action=clamped|rejected
)

// RecordClockSync records the outcome of one synchronization cycle.
func RecordClockSync(authority string, success bool, attempts int, roundTrip time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
		clockSyncRoundTrip.WithLabelValues(authority).Observe(roundTrip.Seconds())
	}
	clockSyncTotal.WithLabelValues(authority, outcome).Inc()
	if attempts > 0 {
		clockSyncAttempts.WithLabelValues(authority).Observe(float64(attempts))
	}
}

// SetClockOffset records the published offset.
func SetClockOffset(delta time.Duration, sequence uint64, correctedAt time.Time) {
	clockOffsetSeconds.Set(delta.Seconds())
	clockSequence.Set(float64(sequence))
	if !correctedAt.IsZero() {
		clockLastSuccess.Set(float64(correctedAt.UnixNano()) / 1e9)
	}
}

// SetClockDegraded records whether the clock is stale.
func SetClockDegraded(degraded bool) {
	if degraded {
		clockDegraded.Set(1)
		return
	}
	clockDegraded.Set(0)
}

// SetClockConsecutiveFailures records the failure streak.
func SetClockConsecutiveFailures(n int) {
	clockConsecutiveFailures.Set(float64(n))
}

// IncClockRegression counts a regression handled by the given action.
func IncClockRegression(action string) {
	clockRegressionsTotal.WithLabelValues(action).Inc()
}
