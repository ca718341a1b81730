// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when the clock is read before the first
	// offset was published. It signals a sequencing bug in the caller and is
	// never retried.
	ErrNotInitialized = errors.New("clock: not initialized")

	// ErrAuthorityUnreachable classifies connection and timeout failures of an authority.
	ErrAuthorityUnreachable = errors.New("clock: authority unreachable")

	// ErrAuthorityProtocol classifies malformed or unexpected authority replies.
	ErrAuthorityProtocol = errors.New("clock: authority protocol error")

	// ErrSyncFailed matches every *SyncError.
	ErrSyncFailed = errors.New("clock: synchronization failed")

	// ErrStartupSync is returned by Startup.EnsureInitialClock when the initial
	// synchronization could not be completed.
	ErrStartupSync = errors.New("clock: startup synchronization failed")

	// ErrInvalidOptions is returned for Options that fail validation.
	ErrInvalidOptions = errors.New("clock: invalid options")

	// ErrOffsetOutOfOrder is returned by Publish when the sequence does not advance.
	ErrOffsetOutOfOrder = errors.New("clock: offset sequence does not advance")

	// ErrClockRegression is returned for a measurement rejected by RegressionReject.
	ErrClockRegression = errors.New("clock: measured offset moves the clock backwards")

	// ErrWatchdogStarted is returned when Start is called more than once.
	ErrWatchdogStarted = errors.New("clock: watchdog already started")
)

// SyncError reports an exhausted synchronization cycle.
type SyncError struct {
	// Attempts is the number of authority queries that were made.
	Attempts int
	// LastErr is the error of the final attempt.
	LastErr error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("clock: synchronization failed after %d attempt(s): %v", e.Attempts, e.LastErr)
}

// Unwrap exposes the last underlying error.
func (e *SyncError) Unwrap() error {
	return e.LastErr
}

// Is makes errors.Is(err, ErrSyncFailed) true for every SyncError.
func (e *SyncError) Is(target error) bool {
	return target == ErrSyncFailed
}

func asSyncError(err error) (*SyncError, bool) {
	var se *SyncError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
