package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pageharvest/pageharvest/internal/common"
)

// Portable DDL: plain TEXT/INTEGER/TIMESTAMP columns so the same statements
// apply to both postgres and sqlite. Timestamps are always written from Go,
// never defaulted server-side.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS workers (
		worker_id           TEXT PRIMARY KEY,
		status              TEXT NOT NULL,
		last_heartbeat_tick INTEGER NOT NULL,
		registered_at       TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		job_id      TEXT PRIMARY KEY,
		status      TEXT NOT NULL,
		payload     TEXT NOT NULL,
		result_text TEXT,
		created_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS leases (
		lease_id        TEXT PRIMARY KEY,
		worker_id       TEXT NOT NULL,
		job_id          TEXT NOT NULL,
		progress_status TEXT NOT NULL,
		worker_liveness TEXT NOT NULL,
		created_at      TIMESTAMP NOT NULL,
		finished_at     TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status)`,
	`CREATE INDEX IF NOT EXISTS idx_leases_worker_progress ON leases (worker_id, progress_status)`,
}

// Migrate applies the schema. Statements are idempotent, so it is safe to run
// on every startup.
func (d *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, stmt := range migrations {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration statement failed", "error", err)
			return fmt.Errorf("%w: %w", common.ErrDatabase, err)
		}
	}
	logger.Info("schema up to date")
	return nil
}
