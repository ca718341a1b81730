// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/log"
)

const problemNotSynchronized = "/problems/clock/not-synchronized"

// TimeResponse is the body of GET /api/v1/time.
type TimeResponse struct {
	Now       time.Time `json:"now"`
	UnixNanos int64     `json:"unixNanos"`
	Stale     bool      `json:"stale"`
	Sequence  uint64    `json:"sequence"`
	Authority string    `json:"authority"`
}

// OffsetView is the JSON form of clock.Offset.
type OffsetView struct {
	DeltaMillis     float64   `json:"deltaMs"`
	MeasuredAt      time.Time `json:"measuredAt"`
	Sequence        uint64    `json:"sequence"`
	Authority       string    `json:"authority"`
	RoundTripMillis float64   `json:"roundTripMs"`
	Attempts        int       `json:"attempts"`
	Clamped         bool      `json:"clamped,omitempty"`
}

// WatchdogView is the JSON form of the watchdog status.
type WatchdogView struct {
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastSuccess         *time.Time `json:"lastSuccess,omitempty"`
}

// ClockResponse is the body of GET /api/v1/clock.
type ClockResponse struct {
	Current            OffsetView    `json:"current"`
	Previous           *OffsetView   `json:"previous,omitempty"`
	StalenessMillis    float64       `json:"stalenessMs"`
	MaxStalenessMillis float64       `json:"maxStalenessMs"`
	Stale              bool          `json:"stale"`
	Watchdog           *WatchdogView `json:"watchdog,omitempty"`
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	now, off, err := s.clock.NowWithOffset()
	if err != nil {
		s.notSynchronized(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TimeResponse{
		Now:       now,
		UnixNanos: now.UnixNano(),
		Stale:     s.stale(),
		Sequence:  off.Sequence,
		Authority: off.Authority,
	})
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	off, err := s.clock.CurrentOffset()
	if err != nil {
		s.notSynchronized(w, r, err)
		return
	}
	age, err := s.clock.Staleness()
	if err != nil {
		s.notSynchronized(w, r, err)
		return
	}

	limit := s.clock.MaxStaleness()
	resp := ClockResponse{
		Current:            offsetView(off),
		StalenessMillis:    millis(age),
		MaxStalenessMillis: millis(limit),
		Stale:              age > limit,
	}
	if prev, ok := s.clock.PreviousOffset(); ok {
		v := offsetView(prev)
		resp.Previous = &v
	}
	if s.watchdog != nil {
		wv := &WatchdogView{
			State:               s.watchdog.State().String(),
			ConsecutiveFailures: s.watchdog.ConsecutiveFailures(),
		}
		if at, ok := s.watchdog.LastSuccess(); ok {
			wv.LastSuccess = &at
		}
		resp.Watchdog = wv
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stale() bool {
	age, err := s.clock.Staleness()
	return err != nil || age > s.clock.MaxStaleness()
}

func (s *Server) notSynchronized(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, clock.ErrNotInitialized) {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.clock_read_failed").
			Msg("reading the clock failed")
	}
	w.Header().Set("Retry-After", "1")
	writeProblem(w, r, http.StatusServiceUnavailable, problemNotSynchronized,
		"Clock not synchronized", "no successful synchronization has completed yet")
}

func offsetView(o clock.Offset) OffsetView {
	return OffsetView{
		DeltaMillis:     millis(o.Delta),
		MeasuredAt:      o.MeasuredAtWall,
		Sequence:        o.Sequence,
		Authority:       o.Authority,
		RoundTripMillis: millis(o.RoundTrip),
		Attempts:        o.Attempts,
		Clamped:         o.Clamped,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
