package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter paces successive operations by a fixed interval with optional
// random jitter. The first Wait returns immediately; each subsequent Wait
// blocks until at least interval (plus jitter) has elapsed since the
// previous one. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0, fraction of interval
	next     time.Time
}

// New creates a limiter. A non-positive interval yields a limiter that
// never blocks. Jitter is clamped to [0, 1].
func New(interval time.Duration, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Limiter{interval: interval, jitter: jitter}
}

// Wait blocks until the next operation may proceed or the context is
// canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	wait := l.next.Sub(now)

	pause := l.interval
	if l.jitter > 0 {
		// Spread the pause over [interval*(1-jitter), interval*(1+jitter)].
		factor := 1 + l.jitter*((rand.Float64()*2)-1)
		pause = time.Duration(float64(l.interval) * factor)
	}
	if wait < 0 {
		l.next = now.Add(pause)
	} else {
		l.next = l.next.Add(pause)
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
