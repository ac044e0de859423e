package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type limited struct {
	next     Client
	limiter  *rate.Limiter
	provider string
}

// WithRateLimit throttles next to rps requests per second with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(next Client, provider string, rps float64, burst int) Client {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &limited{
		next:     next,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		provider: provider,
	}
}

func (c *limited) Invoke(ctx context.Context, conversation []Message) (string, error) {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Provider: c.provider, Type: ErrorTypeRateLimit, Err: err, Message: "rate limiter wait"}
	}
	queueWaitTime.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
	return c.next.Invoke(ctx, conversation)
}
