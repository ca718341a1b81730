// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// RegressionPolicy decides what happens to a measurement that would move the
// clock backwards relative to the currently published offset.
type RegressionPolicy string

const (
	// RegressionAccept publishes the measurement as-is.
	RegressionAccept RegressionPolicy = "accept"
	// RegressionClamp keeps the previous delta so Now never moves backwards.
	RegressionClamp RegressionPolicy = "clamp"
	// RegressionReject fails the attempt; the synchronizer retries it.
	RegressionReject RegressionPolicy = "reject"
)

// Options controls synchronization timing and retry behaviour.
type Options struct {
	// Interval is the time between two watchdog cycles.
	Interval time.Duration

	// PerAttemptTimeout bounds a single authority query.
	PerAttemptTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryBackoff is the delay before the first retry.
	RetryBackoff time.Duration

	// BackoffMultiplier grows the delay between retries. 0 and 1 keep it constant.
	BackoffMultiplier float64

	// MaxBackoff caps the retry delay. 0 means uncapped.
	MaxBackoff time.Duration

	// MaxAcceptableStaleness is how long a published offset stays trustworthy.
	MaxAcceptableStaleness time.Duration

	// RegressionPolicy handles measurements that move the clock backwards.
	RegressionPolicy RegressionPolicy

	// RegressionTolerance is the backward step that is accepted regardless of policy.
	RegressionTolerance time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Interval:               time.Minute,
		PerAttemptTimeout:      5 * time.Second,
		MaxRetries:             3,
		RetryBackoff:           500 * time.Millisecond,
		BackoffMultiplier:      2,
		MaxBackoff:             10 * time.Second,
		MaxAcceptableStaleness: 5 * time.Minute,
		RegressionPolicy:       RegressionAccept,
	}
}

// Validate checks the invariants the synchronizer and watchdog rely on.
func (o Options) Validate() error {
	var errs []error
	if o.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", o.Interval))
	}
	if o.PerAttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("per-attempt timeout must be positive, got %s", o.PerAttemptTimeout))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries cannot be negative, got %d", o.MaxRetries))
	}
	if o.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("retry backoff cannot be negative, got %s", o.RetryBackoff))
	}
	if o.BackoffMultiplier != 0 && o.BackoffMultiplier < 1 {
		errs = append(errs, fmt.Errorf("backoff multiplier must be 0 or >= 1, got %g", o.BackoffMultiplier))
	}
	if o.MaxBackoff < 0 {
		errs = append(errs, fmt.Errorf("max backoff cannot be negative, got %s", o.MaxBackoff))
	}
	if o.MaxAcceptableStaleness <= 0 {
		errs = append(errs, fmt.Errorf("max acceptable staleness must be positive, got %s", o.MaxAcceptableStaleness))
	}
	if o.RegressionTolerance < 0 {
		errs = append(errs, fmt.Errorf("regression tolerance cannot be negative, got %s", o.RegressionTolerance))
	}
	switch o.RegressionPolicy {
	case "", RegressionAccept, RegressionClamp, RegressionReject:
	default:
		errs = append(errs, fmt.Errorf("unknown regression policy %q", o.RegressionPolicy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
	}
	return nil
}

// Backoff returns the delay after the given number of failed attempts.
// The result never decreases as failed grows.
func (o Options) Backoff(failed int) time.Duration {
	if failed <= 0 || o.RetryBackoff <= 0 {
		return 0
	}

	multiplier := o.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}

	// float64 avoids overflow before the cap is applied
	delay := float64(o.RetryBackoff) * math.Pow(multiplier, float64(failed-1))
	if o.MaxBackoff > 0 && delay > float64(o.MaxBackoff) {
		return o.MaxBackoff
	}
	if delay >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// MaxCycleDuration bounds the wall time of one exhausted synchronization cycle.
func (o Options) MaxCycleDuration() time.Duration {
	total := time.Duration(o.MaxRetries+1) * o.PerAttemptTimeout
	for i := 1; i <= o.MaxRetries; i++ {
		total += o.Backoff(i)
	}
	return total
}

func (o Options) regressionPolicy() RegressionPolicy {
	if o.RegressionPolicy == "" {
		return RegressionAccept
	}
	return o.RegressionPolicy
}
