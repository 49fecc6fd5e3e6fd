// Package ratelimit spaces outbound calls to the ingestion source so
// the traffic does not look automated. Every request waits a random
// interval since the previous granted slot.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Limiter struct {
	mu   sync.Mutex
	min  time.Duration
	max  time.Duration
	last time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(min, max time.Duration) *Limiter {
	if max < min {
		max = min
	}
	return &Limiter{
		min:   min,
		max:   max,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// AwaitSlot blocks until the randomized spacing since the last granted
// slot has elapsed. The last-slot timestamp is process-wide state: the
// mutex is held across the wait so concurrent callers serialize in
// call order. The first call is granted immediately.
func (l *Limiter) AwaitSlot(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		delay := l.min
		if l.max > l.min {
			delay += time.Duration(rand.Int63n(int64(l.max - l.min + 1)))
		}
		if remaining := delay - l.now().Sub(l.last); remaining > 0 {
			if err := l.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	l.last = l.now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
