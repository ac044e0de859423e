package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/codegen-backend/config"
	httpapi "github.com/GoSim-25-26J-441/codegen-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/auth"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/export"
	projhttp "github.com/GoSim-25-26J-441/codegen-backend/internal/projects/http"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRequestID(ctx, "main")
	lg := logger.NewLogger(ctx)

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, rdb)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	var (
		notifier   service.Notifier
		handlerOps []projhttp.Option
	)
	if rdb != nil {
		events := repository.NewRedisEvents(rdb)
		notifier = events
		handlerOps = append(handlerOps, projhttp.WithSubscriber(events))
	}

	orch := bootstrap.BuildOrchestrator(cfg, store, llm.NewRegistry(cfg.LLM), notifier)
	// other instances may share the store, so only take over stale steps
	if n, err := orch.Recover(ctx, cfg.Workflow.StaleAfter); err != nil {
		lg.LogErrorf("main", "recover: %v", err)
	} else if n > 0 {
		lg.LogInfof("main", "relaunched %d interrupted steps", n)
	}

	sweeper, err := service.NewSweeper(orch, cfg.Workflow.SweepSchedule, cfg.Workflow.StaleAfter)
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}

	exporter, err := export.New(ctx, cfg.Export)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	handlerOps = append(handlerOps, projhttp.WithExporter(exporter))

	var verifier auth.TokenVerifier
	if cfg.Auth.FirebaseCredentialsPath != "" {
		client, err := auth.InitializeFirebase(ctx, cfg.Auth)
		if err != nil {
			return fmt.Errorf("firebase: %w", err)
		}
		verifier = client
	}

	checks := map[string]httpapi.Pinger{}
	if p, ok := store.(repository.Pinger); ok {
		checks["store"] = p
	}
	if rdb != nil {
		checks["redis"] = bootstrap.RedisPinger(rdb)
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Checks:         checks,
		InFlight:       orch.InFlight,
		Projects:       projhttp.New(orch, handlerOps...),
		Auth:           auth.Middleware(verifier, cfg.Auth.APIKey),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// event streams end with the process context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	sweeper.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.LogInfof("main", "listening on %s (store=%s provider=%s)", srv.Addr, cfg.Store.Driver, cfg.LLM.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.LogInfo("main", "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		sweeper.Stop(shutdownCtx)
		err := srv.Shutdown(shutdownCtx)
		if oerr := orch.Shutdown(shutdownCtx); oerr != nil {
			lg.LogWarnf("main", "workflow steps still running at exit: %v", oerr)
		}
		return err
	})

	return g.Wait()
}
