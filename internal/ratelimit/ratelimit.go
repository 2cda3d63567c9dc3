package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token-bucket limiter used to pace calls against a single
// upstream endpoint family. The bucket refills continuously at rate tokens
// per second and holds at most burst tokens.
type Limiter struct {
	mu       sync.Mutex
	rate     float64
	burst    float64
	tokens   float64
	lastFill time.Time
}

// New creates a limiter allowing rps requests per second with a burst equal
// to one second of traffic. Non-positive rates fall back to 1 rps.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	return &Limiter{
		rate:     rps,
		burst:    rps,
		tokens:   rps,
		lastFill: time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.take()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take attempts to consume a token. When the bucket is empty it returns the
// duration until the next token becomes available.
func (l *Limiter) take() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.lastFill).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastFill = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return 0, true
	}

	deficit := 1.0 - l.tokens
	return time.Duration(deficit / l.rate * float64(time.Second)), false
}
