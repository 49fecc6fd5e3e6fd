package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter without real sleeping: sleeps advance
// the clock and record their duration.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	cancel bool
}

func (c *fakeClock) install(l *Limiter) {
	l.now = func() time.Time { return c.now }
	l.sleep = func(ctx context.Context, d time.Duration) error {
		if c.cancel {
			return context.Canceled
		}
		c.slept = append(c.slept, d)
		c.now = c.now.Add(d)
		return nil
	}
}

func TestFirstSlotImmediate(t *testing.T) {
	l := New(30*time.Second, 90*time.Second)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	clock.install(l)

	require.NoError(t, l.AwaitSlot(context.Background()))
	assert.Empty(t, clock.slept)
}

func TestSpacingWithinBounds(t *testing.T) {
	min, max := 30*time.Second, 90*time.Second
	l := New(min, max)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	clock.install(l)

	require.NoError(t, l.AwaitSlot(context.Background()))
	for i := 0; i < 20; i++ {
		require.NoError(t, l.AwaitSlot(context.Background()))
	}

	require.Len(t, clock.slept, 20)
	for _, d := range clock.slept {
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}
}

func TestElapsedTimeCounts(t *testing.T) {
	min := 30 * time.Second
	l := New(min, min) // fixed spacing, no jitter
	clock := &fakeClock{now: time.Unix(1000, 0)}
	clock.install(l)

	require.NoError(t, l.AwaitSlot(context.Background()))
	// 20s already passed since the last slot, so only 10s remain
	clock.now = clock.now.Add(20 * time.Second)
	require.NoError(t, l.AwaitSlot(context.Background()))

	require.Len(t, clock.slept, 1)
	assert.Equal(t, 10*time.Second, clock.slept[0])
}

func TestNoWaitAfterLongGap(t *testing.T) {
	l := New(time.Second, time.Second)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	clock.install(l)

	require.NoError(t, l.AwaitSlot(context.Background()))
	clock.now = clock.now.Add(time.Hour)
	require.NoError(t, l.AwaitSlot(context.Background()))
	assert.Empty(t, clock.slept)
}

func TestAwaitSlotHonorsContext(t *testing.T) {
	l := New(time.Hour, time.Hour)
	clock := &fakeClock{now: time.Unix(1000, 0), cancel: true}
	clock.install(l)

	require.NoError(t, l.AwaitSlot(context.Background()))
	err := l.AwaitSlot(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSleepCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepCtx(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMaxBelowMinClamped(t *testing.T) {
	l := New(10*time.Second, time.Second)
	assert.Equal(t, l.min, l.max)
}
