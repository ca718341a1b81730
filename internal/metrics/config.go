// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clocksync_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clocksync_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

// IncConfigValidationError counts a rejected configuration.
func IncConfigValidationError() {
	configValidationErrors.Inc()
}

// RecordConfigReload records the outcome of a hot reload.
func RecordConfigReload(success bool) {
	if success {
		configReloads.WithLabelValues("success").Inc()
		return
	}
	configReloads.WithLabelValues("failure").Inc()
}
