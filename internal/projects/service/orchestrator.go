package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/workflow"
)

// ModelSource resolves the model client for a project's provider. An empty
// provider selects the configured default.
type ModelSource interface {
	Client(provider string) (llm.Client, error)
}

// Notifier is told about every persisted project change.
type Notifier interface {
	Publish(ctx context.Context, p *domain.Project) error
}

const completionTimeout = 10 * time.Second

// Orchestrator applies user actions and workflow outcomes to projects. Every
// change follows the same discipline: lock the project, re-read it, check the
// event's guard, then write conditioned on the status just read.
type Orchestrator struct {
	store       repository.Store
	models      ModelSource
	steps       *workflow.Steps
	policy      RetryPolicy
	stepTimeout time.Duration
	notifier    Notifier

	locks  *keyedMutex
	runner *runner
}

type Option func(*Orchestrator)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithStepTimeout bounds each background step. Zero means no bound.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func NewOrchestrator(store repository.Store, models ModelSource, steps *workflow.Steps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		models:      models,
		steps:       steps,
		policy:      DefaultRetryPolicy(),
		stepTimeout: 3 * time.Minute,
		locks:       newKeyedMutex(),
		runner:      newRunner(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.steps == nil {
		o.steps = workflow.New()
	}
	return o
}

// StartOptions are the optional settings of a new project.
type StartOptions struct {
	SkipInterview bool
	Provider      string
}

// Start creates a project and launches its first step.
func (o *Orchestrator) Start(ctx context.Context, name, description string, opts StartOptions) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return nil, fmt.Errorf("%w: name and description are required", domain.ErrInvalidInput)
	}
	provider := strings.TrimSpace(opts.Provider)
	if provider != "" {
		if s, ok := o.models.(interface{ Supports(string) bool }); ok && !s.Supports(provider) {
			return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
		}
	}

	p := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      domain.StatusInterviewing,
		Provider:    provider,
	}
	if opts.SkipInterview {
		p.Status = domain.StatusAnalyzing
		p.InterviewComplete = true
	}

	unlock := o.locks.Lock(p.ID)
	defer unlock()

	created, err := o.store.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	logger.NewLogger(ctx).WithProject(created.ID).LogInfof("projects.start", "status=%s provider=%q", created.Status, created.Provider)
	o.notify(ctx, created)
	o.launch(ctx, created.ID, domain.StepFor(created.Status))
	return created, nil
}

// SubmitAnswer records the user's answer and re-runs the interview.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, id, answer string) (*domain.Project, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is required", domain.ErrInvalidInput)
	}
	return o.apply(ctx, id, domain.EventAnswerSubmitted, domain.EventInput{Answer: answer})
}

// SkipInterview moves straight to analysis. An interview still running is
// superseded and its result will be discarded.
func (o *Orchestrator) SkipInterview(ctx context.Context, id string) (*domain.Project, error) {
	return o.apply(ctx, id, domain.EventSkipRequested, domain.EventInput{})
}

func (o *Orchestrator) ApproveRequirements(ctx context.Context, id string, approved bool) (*domain.Project, error) {
	ev := domain.EventRequirementsRejected
	if approved {
		ev = domain.EventRequirementsApproved
	}
	return o.apply(ctx, id, ev, domain.EventInput{})
}

func (o *Orchestrator) ApproveCode(ctx context.Context, id string, approved bool) (*domain.Project, error) {
	ev := domain.EventCodeRejected
	if approved {
		ev = domain.EventCodeApproved
	}
	return o.apply(ctx, id, ev, domain.EventInput{})
}

func (o *Orchestrator) Get(ctx context.Context, id string) (*domain.Project, error) {
	return o.store.Get(ctx, id)
}

func (o *Orchestrator) List(ctx context.Context) ([]*domain.Project, error) {
	return o.store.List(ctx)
}

// Wait blocks until the project has no background step running, including
// steps chained from the one running now.
func (o *Orchestrator) Wait(ctx context.Context, id string) error {
	return o.runner.wait(ctx, id)
}

// Shutdown stops launching steps and waits for running ones until ctx ends.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.runner.shutdown(ctx)
}

// InFlight is the number of projects with a running background step.
func (o *Orchestrator) InFlight() int {
	return o.runner.inFlight()
}

// Recover relaunches the expected step of every in-flight project that has no
// local task and has not changed for at least olderThan. Each relaunch first
// claims the project in the store, so instances sharing a store never recover
// the same project twice. olderThan must exceed the longest a live step can
// run, otherwise a step still running on another instance is duplicated.
// It returns how many steps were launched.
func (o *Orchestrator) Recover(ctx context.Context, olderThan time.Duration) (int, error) {
	projects, err := o.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	launched := 0
	for _, p := range projects {
		if !p.Status.InFlight() || o.runner.has(p.ID) || p.UpdatedAt.After(cutoff) {
			continue
		}
		if o.recoverOne(ctx, p.ID, cutoff) {
			launched++
		}
	}
	return launched, nil
}

func (o *Orchestrator) recoverOne(ctx context.Context, id string, cutoff time.Time) bool {
	unlock := o.locks.Lock(id)
	defer unlock()

	log := logger.NewLogger(ctx).WithProject(id)
	cur, err := o.store.Get(ctx, id)
	if err != nil {
		log.LogError("projects.recover", err)
		return false
	}
	if !cur.Status.InFlight() || o.runner.has(id) || cur.UpdatedAt.After(cutoff) {
		return false
	}
	claimed, err := o.store.Claim(ctx, id, cur.Status, cutoff)
	if err != nil {
		log.LogError("projects.recover", err)
		return false
	}
	if !claimed {
		// another instance recovered it first
		return false
	}

	step := domain.StepFor(cur.Status)
	if !o.launch(ctx, id, step) {
		return false
	}
	recoveredTotal.Inc()
	log.LogInfof("projects.recover", "relaunched step=%s status=%s", step, cur.Status)
	return true
}

// apply is the synchronous path shared by every user action.
func (o *Orchestrator) apply(ctx context.Context, id string, ev domain.Event, in domain.EventInput) (*domain.Project, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	cur, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := domain.Decide(cur, ev, in)
	if err != nil {
		return nil, err
	}
	updated, err := o.store.Update(ctx, id, d.From, d.Patch)
	if err != nil {
		return nil, err
	}

	transitionsTotal.WithLabelValues(string(ev), string(d.To)).Inc()
	logger.NewLogger(ctx).WithProject(id).LogInfof("projects.transition", "event=%s from=%s to=%s", ev, d.From, d.To)
	o.notify(ctx, updated)
	o.launch(ctx, id, d.Launch)
	return updated, nil
}

// launch starts step for the project in the background. Callers hold the
// project lock. It reports whether a task was started.
func (o *Orchestrator) launch(ctx context.Context, id string, step domain.Step) bool {
	if step == domain.StepNone {
		return false
	}
	rid := logger.RequestID(ctx)
	_, err := o.runner.launch(id, step, func(base context.Context, token uint64) {
		bg := logger.WithRequestID(base, rid)
		o.run(bg, id, token, step)
	})
	if err != nil {
		logger.NewLogger(ctx).WithProject(id).LogWarnf("projects.launch", "step=%s not started: %v", step, err)
		return false
	}
	return true
}

// outcome is a step result reduced to the event it triggers.
type outcome struct {
	event domain.Event
	input domain.EventInput
	label string
	err   error
}

// run executes one step and applies its outcome. Nothing here returns an
// error: every result ends as a transition or a logged discard.
func (o *Orchestrator) run(base context.Context, id string, token uint64, step domain.Step) {
	log := logger.NewLogger(base).WithProject(id)

	ctx := base
	if o.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(base, o.stepTimeout)
		defer cancel()
	}

	p, err := o.store.Get(ctx, id)
	if err != nil {
		log.LogError("projects.run", err)
		return
	}
	if domain.StepFor(p.Status) != step {
		discardedTotal.WithLabelValues(string(step), "status").Inc()
		log.LogInfof("projects.run", "step=%s skipped, status is %s", step, p.Status)
		return
	}

	started := time.Now()
	out := o.execute(ctx, p, step)
	stepDuration.WithLabelValues(string(step), out.label).Observe(time.Since(started).Seconds())

	if base.Err() != nil {
		// shutting down; the step is relaunched by recovery
		discardedTotal.WithLabelValues(string(step), "shutdown").Inc()
		log.LogWarnf("projects.run", "step=%s interrupted by shutdown", step)
		return
	}
	if out.err != nil {
		log.LogWarnf("projects.run", "step=%s outcome=%s err=%v", step, out.label, out.err)
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(base), completionTimeout)
	defer cancel()
	o.complete(cctx, id, token, step, out)
}

func (o *Orchestrator) execute(ctx context.Context, p *domain.Project, step domain.Step) outcome {
	client, err := o.models.Client(p.Provider)
	if err != nil {
		return failedOutcome(step, fmt.Errorf("resolve model client: %w", err))
	}

	onRetry := func(n int, reason string) {
		stepRetriesTotal.WithLabelValues(string(step)).Inc()
		logger.NewLogger(ctx).WithProject(p.ID).LogWarnf("projects.retry", "step=%s attempt=%d %s", step, n, reason)
	}

	switch step {
	case domain.StepInterview:
		res := o.steps.Interview(ctx, client, p.Description, p.ConversationHistory)
		if !res.OK() {
			return outcome{event: domain.EventInterviewFailed, input: domain.EventInput{Reason: res.Reason()}, label: res.Outcome.String(), err: res.Err}
		}
		if res.Value.NeedsMoreInfo {
			return outcome{event: domain.EventInterviewNeedsInfo, input: domain.EventInput{Questions: res.Value.Questions}, label: "needs_info"}
		}
		return outcome{event: domain.EventInterviewReady, input: domain.EventInput{RefinedDescription: res.Value.RefinedDescription}, label: "ready"}

	case domain.StepAnalyze:
		res := attempt(ctx, o.policy, func(n int, r workflow.Result[[]string]) { onRetry(n, r.Reason()) }, func() workflow.Result[[]string] {
			return o.steps.Analyze(ctx, client, p.Name, p.Description)
		})
		if !res.OK() {
			return outcome{event: domain.EventAnalyzeFailed, input: domain.EventInput{Reason: res.Reason()}, label: res.Outcome.String(), err: res.Err}
		}
		return outcome{event: domain.EventAnalyzeSucceeded, input: domain.EventInput{Requirements: res.Value}, label: "parsed"}

	case domain.StepGenerate:
		res := attempt(ctx, o.policy, func(n int, r workflow.Result[[]domain.CodeFile]) { onRetry(n, r.Reason()) }, func() workflow.Result[[]domain.CodeFile] {
			return o.steps.Generate(ctx, client, p.Requirements)
		})
		if !res.OK() {
			return outcome{event: domain.EventGenerateFailed, input: domain.EventInput{Reason: res.Reason()}, label: res.Outcome.String(), err: res.Err}
		}
		return outcome{event: domain.EventGenerateSucceeded, input: domain.EventInput{Code: res.Value}, label: "parsed"}
	}
	return failedOutcome(step, fmt.Errorf("unknown step %q", step))
}

func failedOutcome(step domain.Step, err error) outcome {
	ev := domain.EventAnalyzeFailed
	switch step {
	case domain.StepInterview:
		ev = domain.EventInterviewFailed
	case domain.StepGenerate:
		ev = domain.EventGenerateFailed
	}
	return outcome{event: ev, input: domain.EventInput{Reason: err.Error()}, label: workflow.Failed.String(), err: err}
}

// complete applies a finished step under the project lock. A superseded
// handle, an unmet guard or a lost conditional write drops the result.
func (o *Orchestrator) complete(ctx context.Context, id string, token uint64, step domain.Step, out outcome) {
	unlock := o.locks.Lock(id)
	defer unlock()

	log := logger.NewLogger(ctx).WithProject(id)
	if !o.runner.current(id, token) {
		discardedTotal.WithLabelValues(string(step), "superseded").Inc()
		log.LogInfof("projects.complete", "step=%s result discarded, superseded", step)
		return
	}

	cur, err := o.store.Get(ctx, id)
	if err != nil {
		log.LogError("projects.complete", err)
		return
	}
	d, err := domain.Decide(cur, out.event, out.input)
	if err != nil {
		discardedTotal.WithLabelValues(string(step), "guard").Inc()
		log.LogInfof("projects.complete", "step=%s result discarded: %v", step, err)
		return
	}
	updated, err := o.store.Update(ctx, id, d.From, d.Patch)
	if err != nil {
		if errors.Is(err, domain.ErrStaleState) {
			discardedTotal.WithLabelValues(string(step), "stale").Inc()
			log.LogInfof("projects.complete", "step=%s result discarded: %v", step, err)
			return
		}
		log.LogError("projects.complete", err)
		return
	}

	transitionsTotal.WithLabelValues(string(out.event), string(d.To)).Inc()
	log.LogInfof("projects.transition", "event=%s from=%s to=%s", out.event, d.From, d.To)
	o.notify(ctx, updated)
	o.launch(ctx, id, d.Launch)
}

func (o *Orchestrator) notify(ctx context.Context, p *domain.Project) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Publish(ctx, p); err != nil {
		logger.NewLogger(ctx).WithProject(p.ID).LogWarnf("projects.notify", "publish failed: %v", err)
	}
}
