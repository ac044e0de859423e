package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
)

// Recoverer is the slice of the orchestrator the sweeper drives.
type Recoverer interface {
	Recover(ctx context.Context, olderThan time.Duration) (int, error)
}

// Sweeper periodically relaunches steps for projects stuck in an in-flight
// status, e.g. after another instance died mid-step.
type Sweeper struct {
	cron       *cron.Cron
	recoverer  Recoverer
	staleAfter time.Duration
}

// NewSweeper schedules sweeps with a six-field (seconds first) cron spec.
func NewSweeper(r Recoverer, schedule string, staleAfter time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		cron:       cron.New(cron.WithSeconds()),
		recoverer:  r,
		staleAfter: staleAfter,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	logger.NewLogger(context.Background()).LogInfo("sweeper.start", "stale project sweeper started")
}

// Stop halts scheduling and waits for a running sweep until ctx ends.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithRequestID(ctx, "sweeper")

	n, err := s.recoverer.Recover(ctx, s.staleAfter)
	log := logger.NewLogger(ctx)
	if err != nil {
		log.LogError("sweeper.sweep", err)
		return
	}
	if n > 0 {
		log.LogInfof("sweeper.sweep", "relaunched=%d", n)
	}
}
