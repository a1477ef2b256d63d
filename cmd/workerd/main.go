package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pageharvest/pageharvest/internal/common"
	"github.com/pageharvest/pageharvest/internal/extract"
	"github.com/pageharvest/pageharvest/internal/repository"
	"github.com/pageharvest/pageharvest/internal/worker"
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

	engine := extract.NewEngine(
		extract.NewOCRExtractor(cfg.OCR, logger),
		extract.NewCachedClassifier(extract.GibberishClassifier{}),
		logger,
		extract.WithConcurrency(cfg.Worker.Concurrency),
		extract.WithPageTimeout(cfg.Worker.PageTimeout),
		extract.WithJobTimeout(cfg.Worker.JobTimeout),
		extract.WithDictionary(extract.DefaultDictionary()),
	)

	w := worker.New(workersRepo, jobsRepo, leasesRepo, engine, logger,
		worker.WithPollInterval(cfg.Worker.PollInterval),
		worker.WithHeartbeatInterval(cfg.Worker.HeartbeatInterval),
	)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
