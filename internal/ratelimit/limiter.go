// Package ratelimit provides a blocking token-bucket limiter for
// volume-capped external APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits up to perMinute calls per 60-second window. Tokens refill
// continuously at perMinute/60 per second, capped at the bucket capacity, so
// bursts up to the full capacity are allowed after idle periods.
type Limiter struct {
	mu         sync.Mutex
	capacity   float64
	ratePerSec float64
	tokens     float64
	lastRefill time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	cap := float64(perMinute)
	return &Limiter{
		capacity:   cap,
		ratePerSec: cap / 60.0,
		tokens:     cap,
		lastRefill: time.Now(),
		now:        time.Now,
		sleep:      sleepCtx,
	}
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

func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * l.ratePerSec
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}
	l.lastRefill = now
}

// Wait blocks the caller in place until one token is available, then
// consumes it. Callers are suspended for exactly the time one token needs
// to accrue; no fairness beyond first-come-first-served token consumption.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	for {
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.ratePerSec * float64(time.Second))
		l.mu.Unlock()
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		l.mu.Lock()
	}
}
