// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

func TestSynchronize_FirstAttempt(t *testing.T) {
	src := newManualSource()
	c := New(src, time.Minute)
	auth := newFakeAuthority(src, 5*time.Second)

	off, err := newTestSynchronizer(auth, c).Synchronize(context.Background(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, off.Delta)
	assert.Equal(t, 1, off.Attempts)
	assert.Equal(t, uint64(1), off.Sequence)
	assert.Equal(t, "fake", off.Authority)
	assert.True(t, off.MeasuredAtMonotonic.Equal(src.Monotonic()))
	assert.False(t, c.Initialized(), "Synchronize must not publish")
}

func TestSynchronize_SucceedsWithinRetryBudget(t *testing.T) {
	opts := testOptions()
	opts.MaxRetries = 3

	for failures := 0; failures <= opts.MaxRetries; failures++ {
		src := newManualSource()
		c := New(src, time.Minute)
		auth := newFakeAuthority(src, -2*time.Second)
		auth.failFirst = int64(failures)

		start := time.Now()
		off, err := newTestSynchronizer(auth, c).Synchronize(context.Background(), opts)
		elapsed := time.Since(start)

		require.NoError(t, err, "failures=%d", failures)
		assert.Equal(t, failures+1, off.Attempts)
		assert.Equal(t, -2*time.Second, off.Delta)
		assert.Equal(t, int64(failures+1), auth.calls.Load())
		assert.LessOrEqual(t, elapsed, opts.MaxCycleDuration()+500*time.Millisecond)
	}
}

func TestSynchronize_ExhaustsRetries(t *testing.T) {
	src := newManualSource()
	c := New(src, time.Minute)
	require.NoError(t, c.Publish(Offset{Delta: time.Second, Sequence: 1, MeasuredAtMonotonic: src.Monotonic()}))

	auth := newFakeAuthority(src, 0)
	auth.failing.Store(true)
	opts := testOptions()

	_, err := newTestSynchronizer(auth, c).Synchronize(context.Background(), opts)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSyncFailed)
	require.ErrorIs(t, err, ErrAuthorityUnreachable)
	require.ErrorIs(t, err, errBoom)

	var se *SyncError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, opts.MaxRetries+1, se.Attempts)
	assert.Equal(t, int64(opts.MaxRetries+1), auth.calls.Load())

	cur, err := c.CurrentOffset()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cur.Delta)
	assert.Equal(t, uint64(1), cur.Sequence)
}

func TestSynchronize_PerAttemptTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := newManualSource()
	c := New(src, time.Minute)
	auth := newFakeAuthority(src, 0)
	auth.block.Store(true)

	opts := testOptions()
	opts.MaxRetries = 1
	opts.PerAttemptTimeout = 20 * time.Millisecond

	start := time.Now()
	_, err := newTestSynchronizer(auth, c).Synchronize(context.Background(), opts)
	require.ErrorIs(t, err, ErrAuthorityUnreachable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(2), auth.calls.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestSynchronize_CancelMidAttempt(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := newManualSource()
	c := New(src, time.Minute)
	auth := newFakeAuthority(src, 0)
	auth.block.Store(true)

	opts := testOptions()
	opts.PerAttemptTimeout = 2 * time.Second
	opts.MaxRetries = 5

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := newTestSynchronizer(auth, c).Synchronize(ctx, opts)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, context.Canceled)
	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Attempts)
	assert.Less(t, elapsed, opts.PerAttemptTimeout)
	assert.False(t, c.Initialized())
}

func TestSynchronize_CancelledBeforeStart(t *testing.T) {
	src := newManualSource()
	auth := newFakeAuthority(src, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSynchronizer(auth, New(src, time.Minute)).Synchronize(ctx, testOptions())
	require.ErrorIs(t, err, context.Canceled)
	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Attempts)
	assert.Equal(t, int64(0), auth.calls.Load())
}

func TestSynchronize_InvalidOptions(t *testing.T) {
	src := newManualSource()
	opts := testOptions()
	opts.PerAttemptTimeout = 0

	_, err := newTestSynchronizer(newFakeAuthority(src, 0), New(src, time.Minute)).Synchronize(context.Background(), opts)
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestSynchronize_ZeroTimeIsProtocolError(t *testing.T) {
	src := newManualSource()
	auth := AuthorityFunc(func(context.Context) (time.Time, error) { return time.Time{}, nil })
	opts := testOptions()
	opts.MaxRetries = 0

	_, err := newTestSynchronizer(auth, New(src, time.Minute)).Synchronize(context.Background(), opts)
	require.ErrorIs(t, err, ErrAuthorityProtocol)
}

func TestSynchronize_PanickingAuthority(t *testing.T) {
	src := newManualSource()
	auth := AuthorityFunc(func(context.Context) (time.Time, error) { panic("bad reply") })
	opts := testOptions()
	opts.MaxRetries = 0

	_, err := newTestSynchronizer(auth, New(src, time.Minute)).Synchronize(context.Background(), opts)
	require.ErrorIs(t, err, ErrAuthorityProtocol)
	require.ErrorIs(t, err, ErrSyncFailed)
}

func TestSynchronize_RegressionPolicies(t *testing.T) {
	tests := []struct {
		name        string
		policy      RegressionPolicy
		tolerance   time.Duration
		wantErr     error
		wantDelta   time.Duration
		wantClamped bool
	}{
		{name: "accept", policy: RegressionAccept, wantDelta: 5 * time.Second},
		{name: "clamp", policy: RegressionClamp, wantDelta: 10 * time.Second, wantClamped: true},
		{name: "reject", policy: RegressionReject, wantErr: ErrClockRegression},
		{name: "within tolerance", policy: RegressionReject, tolerance: 6 * time.Second, wantDelta: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newManualSource()
			c := New(src, time.Minute)
			require.NoError(t, c.Publish(Offset{Delta: 10 * time.Second, Sequence: 1, MeasuredAtMonotonic: src.Monotonic()}))

			opts := testOptions()
			opts.RegressionPolicy = tt.policy
			opts.RegressionTolerance = tt.tolerance

			off, err := newTestSynchronizer(newFakeAuthority(src, 5*time.Second), c).Synchronize(context.Background(), opts)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var se *SyncError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, opts.MaxRetries+1, se.Attempts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDelta, off.Delta)
			assert.Equal(t, tt.wantClamped, off.Clamped)
			assert.Greater(t, off.Sequence, uint64(1))
		})
	}
}

func TestSynchronize_ForwardStepIsAlwaysAccepted(t *testing.T) {
	src := newManualSource()
	c := New(src, time.Minute)
	require.NoError(t, c.Publish(Offset{Delta: time.Second, Sequence: 1, MeasuredAtMonotonic: src.Monotonic()}))

	opts := testOptions()
	opts.RegressionPolicy = RegressionReject

	off, err := newTestSynchronizer(newFakeAuthority(src, time.Hour), c).Synchronize(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, off.Delta)
	require.NoError(t, c.Publish(off))
}

func TestSynchronize_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	src := newManualSource()
	auth := newFakeAuthority(src, time.Second)
	auth.failFirst = 1
	s := NewSynchronizer(auth, New(src, time.Minute), WithLogger(quietLogger()), WithTracer(tp.Tracer("test")))

	_, err := s.Synchronize(context.Background(), testOptions())
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{
		"clock.synchronize.attempt",
		"clock.synchronize.attempt",
		"clock.synchronize",
	}, names)
}
