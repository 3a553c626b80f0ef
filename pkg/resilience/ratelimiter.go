// Package resilience paces calls to external providers. Embedding APIs cap
// both requests and input tokens per minute, so a Limiter can hold one bucket
// for each.
package resilience

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// LimiterOpts configures a Limiter. Zero values disable the matching bucket.
type LimiterOpts struct {
	// Rate is requests per second.
	Rate float64
	// Burst is how many requests may start back to back. Defaults to 1.
	Burst int
	// TokensPerMinute caps input tokens across requests.
	TokensPerMinute int
}

// Limiter is shared by every call to one provider.
type Limiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter // nil when tokens are not limited
}

// NewLimiter builds a Limiter from opts.
func NewLimiter(opts LimiterOpts) *Limiter {
	l := &Limiter{requests: rate.NewLimiter(rate.Inf, 1)}
	if opts.Rate > 0 {
		l.requests = rate.NewLimiter(rate.Limit(opts.Rate), max(opts.Burst, 1))
	}
	if opts.TokensPerMinute > 0 {
		perSecond := rate.Limit(float64(opts.TokensPerMinute) / 60)
		l.tokens = rate.NewLimiter(perSecond, opts.TokensPerMinute)
	}
	return l
}

// Allow reports whether a request could start now, consuming a request token
// if so. It ignores the token budget.
func (l *Limiter) Allow() bool { return l.requests.Allow() }

// Wait blocks until one request carrying cost input tokens may start. A cost
// above a full minute of budget waits for the whole bucket instead of
// failing.
func (l *Limiter) Wait(ctx context.Context, cost int) error {
	if err := l.requests.Wait(ctx); err != nil {
		return fmt.Errorf("resilience: wait for request slot: %w", err)
	}
	if l.tokens == nil || cost <= 0 {
		return nil
	}
	if err := l.tokens.WaitN(ctx, min(cost, l.tokens.Burst())); err != nil {
		return fmt.Errorf("resilience: wait for %d tokens: %w", cost, err)
	}
	return nil
}
