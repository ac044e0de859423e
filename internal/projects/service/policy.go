package service

import (
	"context"
	"math"
	"time"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/workflow"
)

// RetryPolicy decides how often Analyze and Generate are attempted. Interview
// is never retried since its failure is absorbed by falling back to Analyze.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    1,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2,
	}
}

// delay returns the wait before the given retry (1-based).
func (p RetryPolicy) delay(retry int) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 2
	}
	d := time.Duration(float64(p.InitialBackoff) * math.Pow(factor, float64(retry-1)))
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// shouldRetry reports whether a result is worth another attempt. Only model
// errors classified as retryable qualify; malformed replies are final.
func shouldRetry[T any](res workflow.Result[T]) bool {
	return res.Outcome == workflow.Failed && llm.IsRetryable(res.Err)
}

// attempt runs fn until it yields a final result or attempts run out.
func attempt[T any](ctx context.Context, p RetryPolicy, onRetry func(n int, res workflow.Result[T]), fn func() workflow.Result[T]) workflow.Result[T] {
	limit := p.MaxAttempts
	if limit < 1 {
		limit = 1
	}

	var res workflow.Result[T]
	for n := 1; n <= limit; n++ {
		res = fn()
		if n == limit || !shouldRetry(res) {
			return res
		}
		if onRetry != nil {
			onRetry(n, res)
		}

		timer := time.NewTimer(p.delay(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return res
		case <-timer.C:
		}
	}
	return res
}
