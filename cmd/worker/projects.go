package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/codegen-backend/config"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/export"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/service"
)

// RunExport exports one completed project with the configured exporter.
func RunExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	id := fs.String("id", "", "project id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	ctx := logger.WithRequestID(context.Background(), "worker")
	cfg, store, closeAll, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	p, err := store.Get(ctx, *id)
	if err != nil {
		return err
	}
	exporter, err := export.New(ctx, cfg.Export)
	if err != nil {
		return err
	}
	receipt, err := exporter.Export(ctx, p)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

// RunRecover relaunches the steps of in-flight projects with no running task
// and waits for them to settle.
func RunRecover(args []string) error {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	olderThan := fs.Duration("older-than", 0, "only projects unchanged for at least this long (default WORKFLOW_STALE_AFTER)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRequestID(ctx, "worker")

	cfg, store, closeAll, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	if *olderThan <= 0 {
		*olderThan = cfg.Workflow.StaleAfter
	}

	orch := bootstrap.BuildOrchestrator(cfg, store, llm.NewRegistry(cfg.LLM), nil)
	n, err := orch.Recover(ctx, *olderThan)
	if err != nil {
		return err
	}
	logger.NewLogger(ctx).LogInfof("worker.recover", "relaunched %d steps", n)

	<-waitIdle(ctx, orch)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return orch.Shutdown(shutdownCtx)
}

// waitIdle closes the returned channel once no step is running or ctx ends.
func waitIdle(ctx context.Context, orch *service.Orchestrator) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(200 * time.Millisecond)
		defer t.Stop()
		for orch.InFlight() > 0 {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return done
}

func openStore(ctx context.Context) (*config.Config, repository.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger.SetLevel(cfg.App.LogLevel)

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, nil, err
	}
	return cfg, store, func() {
		closeStore()
		if rdb != nil {
			_ = rdb.Close()
		}
	}, nil
}
