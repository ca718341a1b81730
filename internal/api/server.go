// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the synchronized clock over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/clocksync/internal/api/middleware"
	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/health"
)

// Clock is the read side of clock.Clock served by the API.
type Clock interface {
	NowWithOffset() (time.Time, clock.Offset, error)
	CurrentOffset() (clock.Offset, error)
	PreviousOffset() (clock.Offset, bool)
	Staleness() (time.Duration, error)
	MaxStaleness() time.Duration
}

// Watchdog is the status side of clock.Watchdog served by the API.
type Watchdog interface {
	State() clock.WatchdogState
	ConsecutiveFailures() int
	LastSuccess() (time.Time, bool)
}

// Config configures the HTTP surface.
type Config struct {
	RateLimitEnabled  bool
	RequestsPerMinute int
	TracingService    string // empty disables tracing
}

// Server serves the clock API.
type Server struct {
	clock    Clock
	watchdog Watchdog
	health   *health.Manager
	router   chi.Router
}

// New builds the router. watchdog may be nil when the process runs without
// background re-synchronization.
func New(cfg Config, c Clock, watchdog Watchdog, hm *health.Manager) *Server {
	s := &Server{
		clock:    c,
		watchdog: watchdog,
		health:   hm,
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:     true,
		TracingService:    cfg.TracingService,
		EnableLogging:     true,
		EnableRateLimit:   cfg.RateLimitEnabled,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "about:blank", "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "about:blank", "Method Not Allowed", "")
	})

	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/time", s.handleTime)
		r.Get("/clock", s.handleClock)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
