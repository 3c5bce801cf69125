package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanurielf/scheduler/logger"
)

func TestNewDriver(t *testing.T) {
	_, err := NewDriver(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s := MustNew(WithLocation(time.UTC), WithLogger(logger.NewNop()))
	d, err := NewDriver(s, WithInterval(10*time.Millisecond), WithDriverName("ticker"))
	require.NoError(t, err)
	assert.Equal(t, "ticker", d.Name())
	assert.Equal(t, "@every 1s", d.Addr())
	assert.False(t, d.Running())
}

func TestDriver_RunOnce(t *testing.T) {
	clock := newManualClock(utc(2024, 1, 1, 0, 0, 0))
	s := MustNew(WithLocation(time.UTC), WithClock(clock), WithLogger(logger.NewNop()))

	job, err := s.Weekly(Monday, noop)
	require.NoError(t, err)

	d, err := NewDriver(s)
	require.NoError(t, err)
	require.NoError(t, d.RunOnce(context.Background()))
	assert.EqualValues(t, 1, job.Attempts())
}

func TestDriver_StartStop(t *testing.T) {
	clock := newManualClock(utc(2024, 1, 1, 0, 0, 0))
	s := MustNew(WithLocation(time.UTC), WithClock(clock), WithLogger(logger.NewNop()))

	var calls atomic.Int32
	job, err := s.Weekly(Monday, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	d, err := NewDriver(s, WithInterval(time.Second))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Start(ctx))
	assert.True(t, d.Running())

	assert.Eventually(t, func() bool {
		return job.Attempts() == 1
	}, 3*time.Second, 20*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, d.Stop(stopCtx))
	require.NoError(t, d.Stop(stopCtx))
	assert.False(t, d.Running())
	assert.EqualValues(t, 1, calls.Load())
}
