// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import "time"

// Offset is the result of one successful synchronization.
//
// Offsets are values: the Clock stores its own copy and hands out copies, so a
// published Offset can never be modified in place. A new synchronization always
// produces a new Offset.
type Offset struct {
	// Delta is authoritative time minus local monotonic time at MeasuredAtMonotonic.
	Delta time.Duration

	// MeasuredAtMonotonic is the local monotonic reading taken right after the
	// authority replied.
	MeasuredAtMonotonic time.Time

	// MeasuredAtWall is the host wall clock at measurement time.
	MeasuredAtWall time.Time

	// Sequence increases with every successful measurement. Zero means "never measured".
	Sequence uint64

	// Authority names the source that produced the measurement.
	Authority string

	// RoundTrip is the local duration of the authority query. It is reported
	// for diagnostics and is not used to correct Delta.
	RoundTrip time.Duration

	// Attempts is the number of attempts the synchronization needed.
	Attempts int

	// Clamped is set when the regression policy replaced the measured delta.
	Clamped bool
}

// Apply returns the authoritative estimate for the given local monotonic time.
func (o Offset) Apply(monotonic time.Time) time.Time {
	return monotonic.Add(o.Delta)
}

// Age returns how long ago, in local monotonic time, the offset was measured.
func (o Offset) Age(asOfMonotonic time.Time) time.Duration {
	return asOfMonotonic.Sub(o.MeasuredAtMonotonic)
}

// IsZero reports whether o is the zero Offset.
func (o Offset) IsZero() bool {
	return o.Sequence == 0 && o.MeasuredAtMonotonic.IsZero()
}
