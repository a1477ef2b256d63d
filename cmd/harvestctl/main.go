package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pageharvest/pageharvest/internal/common"
	"github.com/pageharvest/pageharvest/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "harvestctl",
	Short: "Operator tool for the pageharvest fleet",
}

func main() {
	rootCmd.AddCommand(migrateCmd, enqueueCmd, jobsCmd, exportCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ctlLogger keeps repository logging on stderr so command output stays clean.
func ctlLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func openStore(ctx context.Context) (*repository.DB, *slog.Logger) {
	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		log.Fatal("DB_URL env var is required")
	}
	logger := ctlLogger()
	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	return db, logger
}

// DefaultDeadlineContext bounds one control command against a hung store.
func DefaultDeadlineContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
