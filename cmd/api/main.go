package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fobos-app/ledger/internal/api"
	"github.com/fobos-app/ledger/internal/config"
	"github.com/fobos-app/ledger/internal/db"
	"github.com/fobos-app/ledger/internal/logger"
	"github.com/fobos-app/ledger/internal/metrics"
	"github.com/fobos-app/ledger/internal/repository"
	"github.com/fobos-app/ledger/internal/repository/guard"
	"github.com/fobos-app/ledger/internal/repository/memory"
	"github.com/fobos-app/ledger/internal/repository/postgres"
	"github.com/fobos-app/ledger/internal/services"
	"github.com/fobos-app/ledger/internal/status"
	"github.com/fobos-app/ledger/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repos repository.Repositories
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on exit")
		repos = memory.NewRepositories()
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				return err
			}
		}
		repos = postgres.NewRepositories(pool)
	}
	repos = guard.Wrap(repos, guard.Settings{Failures: cfg.BreakerFailures, Log: log})

	sinks := []status.Relay{status.NewAuditRelay(repos.AuditLogs, log)}
	if len(cfg.KafkaBrokers) > 0 {
		kr := status.NewKafkaRelay(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer kr.Close()
		sinks = append(sinks, kr)
	}

	// Stopped before the sinks close so queued events still go out.
	wp := worker.NewPool(cfg.Workers)
	defer wp.Stop()
	relay := status.Multi(status.NewLogRelay(log), status.Async(status.Multi(sinks...), wp))

	ledger := services.NewLedgerService(repos.Entries, repos.Accounts, relay,
		services.WithLogger(log),
		services.WithAdjustPolicy(services.AdjustPolicy{Attempts: cfg.AdjustAttempts, Backoff: cfg.AdjustBackoff}),
	)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:        cfg,
		Ledger:     ledger,
		Accounts:   services.NewAccountService(repos.Accounts, relay),
		Categories: services.NewCategoryService(repos.Categories, relay),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver, "kafka", len(cfg.KafkaBrokers) > 0)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
