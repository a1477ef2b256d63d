package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pageharvest/pageharvest/internal/common"
	"github.com/pageharvest/pageharvest/internal/dispatch"
	"github.com/pageharvest/pageharvest/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.Migrate(ctx, logger); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	workersRepo := repository.NewWorkerRepository(db, logger)
	jobsRepo, err := repository.NewJobRepository(db, logger)
	if err != nil {
		logger.Error("job repository", "error", err)
		os.Exit(1)
	}
	leasesRepo := repository.NewLeaseRepository(db, logger)

	loop := dispatch.NewLoop(
		dispatch.NewAssigner(workersRepo, jobsRepo, leasesRepo, logger),
		dispatch.NewMonitor(workersRepo, logger),
		dispatch.NewRecovery(jobsRepo, leasesRepo, logger),
		dispatch.NewReporter(dispatch.NewNotifier(cfg.Notify, logger), workersRepo, logger),
		logger,
		dispatch.WithInterval(cfg.Dispatcher.PollInterval),
		dispatch.WithLivenessEvery(cfg.Dispatcher.LivenessEvery),
		dispatch.WithErrorBackoff(cfg.Dispatcher.ErrorBackoff),
	)

	logger.Info("initiating dispatcher")
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("dispatcher loop exited", "error", err)
		os.Exit(1)
	}
	logger.Info("dispatcher stopped")
}
