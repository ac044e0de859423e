package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegen_project_transitions_total",
			Help: "Project status transitions by event and resulting status",
		},
		[]string{"event", "to"},
	)
	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codegen_workflow_step_duration_seconds",
			Help:    "Wall time of a workflow step including retries",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step", "outcome"},
	)
	stepRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegen_workflow_step_retries_total",
			Help: "Workflow step retries after a retryable model error",
		},
		[]string{"step"},
	)
	discardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegen_workflow_results_discarded_total",
			Help: "Workflow results dropped because the project moved on",
		},
		[]string{"step", "reason"},
	)
	recoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codegen_workflow_steps_recovered_total",
			Help: "Workflow steps relaunched for in-flight projects without a running task",
		},
	)
)
