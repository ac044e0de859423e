package bootstrap

import (
	"github.com/GoSim-25-26J-441/codegen-backend/config"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/service"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/workflow"
)

// BuildOrchestrator wires the workflow settings from configuration. A nil
// notifier leaves change fan-out disabled.
func BuildOrchestrator(cfg *config.Config, store repository.Store, models service.ModelSource, notifier service.Notifier) *service.Orchestrator {
	steps := workflow.New(workflow.WithMaxPromptTokens(cfg.Workflow.MaxPromptTokens))

	opts := []service.Option{
		service.WithRetryPolicy(service.RetryPolicy{
			MaxAttempts:    cfg.Workflow.MaxAttempts,
			InitialBackoff: cfg.Workflow.InitialBackoff,
			MaxBackoff:     cfg.Workflow.MaxBackoff,
			BackoffFactor:  2,
		}),
		service.WithStepTimeout(cfg.Workflow.StepTimeout),
	}
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}
	return service.NewOrchestrator(store, models, steps, opts...)
}
