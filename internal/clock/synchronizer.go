// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/clocksync/internal/log"
	"github.com/ManuGH/clocksync/internal/telemetry"
)

// Authority is a remote source of authoritative time.
//
// FetchTime must honor ctx cancellation and deadlines. Implementations should
// classify failures with ErrAuthorityUnreachable or ErrAuthorityProtocol.
type Authority interface {
	FetchTime(ctx context.Context) (time.Time, error)
}

// AuthorityFunc adapts a function to Authority.
type AuthorityFunc func(ctx context.Context) (time.Time, error)

func (f AuthorityFunc) FetchTime(ctx context.Context) (time.Time, error) {
	return f(ctx)
}

// Named is implemented by authorities that can describe themselves.
type Named interface {
	Name() string
}

// AuthorityName returns a printable name for a.
func AuthorityName(a Authority) string {
	if n, ok := a.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", a)
}

// Synchronizer measures the offset between an Authority and the local monotonic
// source of a Clock. It never publishes; callers decide what to do with the result.
type Synchronizer struct {
	authority Authority
	clock     *Clock
	logger    zerolog.Logger
	tracer    trace.Tracer
	sequence  atomic.Uint64
}

// SynchronizerOption customizes a Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithLogger sets the synchronizer logger.
func WithLogger(logger zerolog.Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// WithTracer sets the tracer used for synchronization spans.
func WithTracer(tracer trace.Tracer) SynchronizerOption {
	return func(s *Synchronizer) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewSynchronizer creates a Synchronizer for the given authority and clock.
func NewSynchronizer(authority Authority, clock *Clock, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		authority: authority,
		clock:     clock,
		logger:    log.WithComponent("clock.sync"),
		tracer:    telemetry.Tracer("clocksync.clock"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authority returns the wrapped authority.
func (s *Synchronizer) Authority() Authority {
	return s.authority
}

// Synchronize queries the authority, retrying failed attempts with backoff,
// and returns the measured offset. It makes at most opts.MaxRetries+1 attempts
// and returns a *SyncError when all of them fail or ctx is cancelled.
func (s *Synchronizer) Synchronize(ctx context.Context, opts Options) (Offset, error) {
	if err := opts.Validate(); err != nil {
		return Offset{}, err
	}

	name := AuthorityName(s.authority)
	ctx, span := s.tracer.Start(ctx, "clock.synchronize")
	span.SetAttributes(telemetry.SyncAttributes(name, opts.MaxRetries)...)
	defer span.End()

	logger := log.WithContext(ctx, s.logger)
	maxAttempts := opts.MaxRetries + 1
	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, opts.Backoff(attempt-1)); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		attempts = attempt
		off, err := s.attempt(ctx, opts, attempt, name)
		if err == nil {
			off.Attempts = attempts
			span.SetAttributes(telemetry.OffsetAttributes(off.Delta, off.RoundTrip, off.Sequence, attempts)...)
			span.SetStatus(codes.Ok, "")
			return off, nil
		}
		lastErr = err

		logger.Debug().
			Err(err).
			Str(log.FieldAuthority, name).
			Int(log.FieldAttempt, attempt).
			Int("max_attempts", maxAttempts).
			Msg("clock sync attempt failed")
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr == nil {
			lastErr = ctxErr
		} else {
			lastErr = fmt.Errorf("%w (last attempt: %w)", ctxErr, lastErr)
		}
	}

	syncErr := &SyncError{Attempts: attempts, LastErr: lastErr}
	span.SetAttributes(attribute.Int(telemetry.ClockAttemptsKey, attempts))
	span.RecordError(syncErr)
	span.SetStatus(codes.Error, syncErr.Error())
	return Offset{}, syncErr
}

func (s *Synchronizer) attempt(ctx context.Context, opts Options, attempt int, name string) (Offset, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.PerAttemptTimeout)
	defer cancel()

	attemptCtx, span := s.tracer.Start(attemptCtx, "clock.synchronize.attempt")
	span.SetAttributes(telemetry.AttemptAttributes(attempt)...)
	defer span.End()

	source := s.clock.Source()
	t0 := source.Monotonic()
	authTime, err := s.fetch(attemptCtx)
	t1 := source.Monotonic()
	if err == nil && authTime.IsZero() {
		err = fmt.Errorf("%w: authority returned zero time", ErrAuthorityProtocol)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Offset{}, err
	}

	off := Offset{
		Delta:               authTime.Sub(t1),
		MeasuredAtMonotonic: t1,
		MeasuredAtWall:      source.Wall(),
		Authority:           name,
		RoundTrip:           t1.Sub(t0),
	}

	if err := s.applyRegressionPolicy(&off, opts); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Offset{}, err
	}

	off.Sequence = s.nextSequence()
	span.SetStatus(codes.Ok, "")
	return off, nil
}

// fetch runs FetchTime so that a misbehaving authority that ignores ctx
// cannot hold the attempt past its deadline.
func (s *Synchronizer) fetch(ctx context.Context) (time.Time, error) {
	type result struct {
		t   time.Time
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("%w: authority panicked: %v", ErrAuthorityProtocol, r)}
			}
		}()
		t, err := s.authority.FetchTime(ctx)
		ch <- result{t: t, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return time.Time{}, classify(ctx, r.err)
		}
		return r.t, nil
	case <-ctx.Done():
		return time.Time{}, classify(ctx, ctx.Err())
	}
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrAuthorityUnreachable) || errors.Is(err, ErrAuthorityProtocol) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: attempt timed out: %w", ErrAuthorityUnreachable, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAuthorityUnreachable, err)
}

func (s *Synchronizer) applyRegressionPolicy(off *Offset, opts Options) error {
	prev, err := s.clock.CurrentOffset()
	if err != nil {
		return nil
	}
	// Compare the corrected readings at the same local instant.
	step := off.Delta - prev.Delta
	if step >= -opts.RegressionTolerance {
		return nil
	}

	switch opts.regressionPolicy() {
	case RegressionClamp:
		off.Delta = prev.Delta
		off.Clamped = true
		return nil
	case RegressionReject:
		return fmt.Errorf("%w: step %s exceeds tolerance %s", ErrClockRegression, step, opts.RegressionTolerance)
	default:
		return nil
	}
}

func (s *Synchronizer) nextSequence() uint64 {
	// Keep sequences ahead of anything already published on the clock.
	for {
		cur := s.sequence.Load()
		next := cur + 1
		if off, err := s.clock.CurrentOffset(); err == nil && off.Sequence >= next {
			next = off.Sequence + 1
		}
		if s.sequence.CompareAndSwap(cur, next) {
			return next
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
