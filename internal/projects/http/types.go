package http

import (
	"context"
	"time"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/export"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/service"
)

// Service is the orchestrator surface the handlers drive.
type Service interface {
	Start(ctx context.Context, name, description string, opts service.StartOptions) (*domain.Project, error)
	Get(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	SubmitAnswer(ctx context.Context, id, answer string) (*domain.Project, error)
	SkipInterview(ctx context.Context, id string) (*domain.Project, error)
	ApproveRequirements(ctx context.Context, id string, approved bool) (*domain.Project, error)
	ApproveCode(ctx context.Context, id string, approved bool) (*domain.Project, error)
}

// Subscriber streams persisted project changes.
type Subscriber interface {
	Subscribe(ctx context.Context, id string) (<-chan *domain.Project, error)
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc      Service
	exporter export.Exporter
	events   Subscriber

	pollInterval time.Duration
	keepAlive    time.Duration
}

type Option func(*Handler)

// WithSubscriber streams from pub/sub instead of polling the store.
func WithSubscriber(s Subscriber) Option {
	return func(h *Handler) { h.events = s }
}

func WithExporter(e export.Exporter) Option {
	return func(h *Handler) { h.exporter = e }
}

// WithStreamIntervals overrides the SSE poll and keep-alive periods.
func WithStreamIntervals(poll, keepAlive time.Duration) Option {
	return func(h *Handler) {
		h.pollInterval = poll
		h.keepAlive = keepAlive
	}
}

func New(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc:          svc,
		pollInterval: time.Second,
		keepAlive:    15 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type createReq struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	SkipInterview bool   `json:"skip_interview"`
	Provider      string `json:"provider"`
}

type answerReq struct {
	Answer string `json:"answer"`
}

type approvalReq struct {
	Approved *bool `json:"approved"`
}
