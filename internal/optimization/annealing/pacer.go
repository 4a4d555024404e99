package annealing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer suspends the search between iterations so that progress can be
// observed externally. It carries no correctness obligation.
type Pacer interface {
	// Pause blocks until the next iteration may run or ctx is done.
	Pause(ctx context.Context) error
}

// NoPacer runs iterations back to back.
type NoPacer struct{}

// Pause returns immediately unless ctx is already done.
func (NoPacer) Pause(ctx context.Context) error {
	return ctx.Err()
}

// RatePacer spaces iterations by a fixed interval using a token bucket.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a pacer allowing one iteration per interval. A
// non-positive interval yields a pacer that never waits.
func NewRatePacer(interval time.Duration) *RatePacer {
	if interval <= 0 {
		return &RatePacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	// The burst token is consumed up front so the first pause waits a full interval.
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.Allow()
	return &RatePacer{limiter: l}
}

// Pause waits for the next token.
func (p *RatePacer) Pause(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
