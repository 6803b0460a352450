// Package ratelimit paces outbound platform sends.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks callers so sends leave at most once per interval, with a
// configurable burst.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing one send per interval. An interval of
// zero or less disables pacing.
func NewPacer(interval time.Duration, burst int) *Pacer {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the next send may go out or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
