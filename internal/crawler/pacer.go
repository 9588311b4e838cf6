package crawler

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests. Every Wait first honours a shared rate limiter,
// then sleeps for a random duration drawn uniformly from [min, max].
//
// Design decision: The limiter is shared between the listing and document
// pacers so the floor between any two requests holds regardless of which
// kind of request comes next.
type Pacer struct {
	limiter *rate.Limiter
	min     time.Duration
	max     time.Duration

	// jitter returns a value in [0, n). Replaced in tests.
	jitter func(n int64) int64
}

// NewPacer creates a Pacer. A nil limiter disables the rate floor and a zero
// range disables the random delay.
func NewPacer(limiter *rate.Limiter, minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{
		limiter: limiter,
		min:     minDelay,
		max:     maxDelay,
		jitter:  rand.Int64N,
	}
}

// NewRequestLimiter returns a limiter allowing one request per interval.
// A non-positive interval returns nil, which disables the floor.
func NewRequestLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Wait blocks until the next request may be sent or ctx is done.
// A nil Pacer returns immediately.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	d := p.Delay()
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

// Delay draws the next random delay.
func (p *Pacer) Delay() time.Duration {
	span := int64(p.max - p.min)
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.jitter(span+1))
}
