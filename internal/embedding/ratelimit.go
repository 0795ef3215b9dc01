package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the wrapped embedder.
type RateLimited struct {
	Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows at most rps calls per second with a burst of one.
func NewRateLimited(next Embedder, rps float64) *RateLimited {
	return &RateLimited{Embedder: next, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Embed waits for a token, then delegates.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, upstream("embedding.ratelimit", err)
	}
	return r.Embedder.Embed(ctx, text)
}
