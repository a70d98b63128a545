package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedClient throttles an underlying client to a per-minute request
// budget so a batch of investigations cannot exhaust the provider quota.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps a client with a token bucket. A non-positive
// perMinute disables throttling.
func NewRateLimitedClient(inner Client, perMinute int) *RateLimitedClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
	}
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

func (c *RateLimitedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Complete(ctx, systemPrompt, userPrompt)
}

func (c *RateLimitedClient) Close() error {
	return c.inner.Close()
}
