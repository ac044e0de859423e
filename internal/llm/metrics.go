package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegen_llm_requests_total",
			Help: "Total number of model invocations by provider, model and status",
		},
		[]string{"provider", "model", "status", "error_type"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codegen_llm_request_duration_seconds",
			Help:    "Duration of model invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)
	queueWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codegen_llm_queue_wait_duration_seconds",
			Help:    "Time spent waiting for rate limit availability",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// instrumented records request counts and latency around an inner client.
type instrumented struct {
	next     Client
	provider string
	model    string
}

// WithMetrics wraps next so every invocation is recorded.
func WithMetrics(next Client, provider, model string) Client {
	return &instrumented{next: next, provider: provider, model: model}
}

func (c *instrumented) Invoke(ctx context.Context, conversation []Message) (string, error) {
	start := time.Now()
	reply, err := c.next.Invoke(ctx, conversation)
	requestDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())

	status, errType := "success", ""
	if err != nil {
		status, errType = "error", TypeOf(err).String()
	}
	requestsTotal.WithLabelValues(c.provider, c.model, status, errType).Inc()
	return reply, err
}
