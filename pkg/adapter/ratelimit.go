package adapter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to an underlying adapter.
type RateLimited struct {
	next    Adapter
	limiter *rate.Limiter
}

// NewRateLimited allows rps calls per second with the given burst.
func NewRateLimited(next Adapter, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Name returns the wrapped adapter's identifier.
func (r *RateLimited) Name() string {
	return r.next.Name()
}

// Complete waits for a token, then delegates.
func (r *RateLimited) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &ModelCallError{Err: err}
	}
	return r.next.Complete(ctx, req)
}
