// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import "time"

// Source supplies local time readings. Implementations must be safe for
// concurrent use.
type Source interface {
	// Monotonic returns local monotonic time anchored to the host wall clock at
	// the moment the source was created. It never moves backwards, even when
	// the host clock is stepped.
	Monotonic() time.Time

	// Wall returns the raw host wall clock (diagnostics only).
	Wall() time.Time
}

type systemSource struct {
	epoch time.Time
}

var _ Source = (*systemSource)(nil)

// NewSystemSource returns a Source backed by the runtime monotonic clock.
func NewSystemSource() Source {
	return &systemSource{epoch: time.Now()}
}

func (s *systemSource) Monotonic() time.Time {
	// time.Since uses the monotonic reading captured in epoch.
	return s.epoch.Add(time.Since(s.epoch))
}

func (s *systemSource) Wall() time.Time {
	return time.Now()
}
