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
	authorityRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clocksync_authority_requests_total",
		Help: "Authority queries by authority and outcome",
	}, []string{"authority", "outcome"}) // outcome=success|unreachable|protocol|canceled|circuit_open

	authorityLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clocksync_authority_request_duration_seconds",
		Help:    "Latency of individual authority queries",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"authority"})
)

// RecordAuthorityRequest records one authority query.
func RecordAuthorityRequest(authority, outcome string, d time.Duration) {
	authorityRequests.WithLabelValues(authority, outcome).Inc()
	authorityLatency.WithLabelValues(authority).Observe(d.Seconds())
}
