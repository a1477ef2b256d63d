package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pageharvest/pageharvest/constants"
	"github.com/pageharvest/pageharvest/internal/common"
	"github.com/pageharvest/pageharvest/internal/entity"
)

// WorkerIDWidth is the zero-padded width of sequentially assigned worker ids.
const WorkerIDWidth = 9

// registerAttempts bounds the retry loop when concurrent registrations race
// for the same max id.
const registerAttempts = 5

type WorkerRepository interface {
	// Register assigns the next sequential worker id and inserts an IDLE row
	// with the current heartbeat tick. Retries on a uniqueness violation.
	Register(ctx context.Context, tick int) (string, error)
	Heartbeat(ctx context.Context, workerID string, tick int) error
	// ListActive returns all workers not yet OFFLINE, in store order.
	ListActive(ctx context.Context) ([]entity.Worker, error)
	ListIdle(ctx context.Context) ([]entity.Worker, error)
	CountActive(ctx context.Context) (int, error)
	// MarkOffline sets the worker OFFLINE and flips its pending lease's
	// liveness snapshot to offline in one transaction.
	MarkOffline(ctx context.Context, workerID string) error
}

type workerRepo struct {
	db  *DB
	log *slog.Logger
}

func NewWorkerRepository(db *DB, log *slog.Logger) WorkerRepository {
	if log == nil {
		log = slog.Default()
	}
	return &workerRepo{db: db, log: log}
}

func (r *workerRepo) Register(ctx context.Context, tick int) (string, error) {
	var lastErr error
	for attempt := 0; attempt < registerAttempts; attempt++ {
		id, err := r.nextID(ctx)
		if err != nil {
			return "", err
		}
		_, err = r.db.sql.ExecContext(ctx, r.db.rebind(
			`INSERT INTO workers (worker_id, status, last_heartbeat_tick, registered_at) VALUES (?, ?, ?, ?)`),
			id, string(constants.WorkerIdle), tick, time.Now().UTC())
		if err == nil {
			r.log.Info("worker registered", "worker_id", id)
			return id, nil
		}
		if !IsUniqueViolation(err) {
			r.log.Error("worker registration failed", "worker_id", id, "error", err)
			return "", err
		}
		// Another worker took this id between our read and insert; re-read the max.
		r.log.Warn("worker id already taken, retrying", "worker_id", id, "attempt", attempt+1)
		lastErr = err
	}
	return "", common.WrapError(lastErr, "register: exhausted id retries")
}

func (r *workerRepo) nextID(ctx context.Context) (string, error) {
	var last string
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT worker_id FROM workers ORDER BY worker_id DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Sprintf("%0*d", WorkerIDWidth, 0), nil
	case err != nil:
		return "", err
	}
	n, err := strconv.Atoi(last)
	if err != nil {
		return "", fmt.Errorf("malformed worker id %q: %w", last, err)
	}
	return fmt.Sprintf("%0*d", WorkerIDWidth, n+1), nil
}

func (r *workerRepo) Heartbeat(ctx context.Context, workerID string, tick int) error {
	res, err := r.db.sql.ExecContext(ctx, r.db.rebind(
		`UPDATE workers SET last_heartbeat_tick = ? WHERE worker_id = ?`), tick, workerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("worker %s: %w", workerID, common.ErrNotFound)
	}
	return nil
}

func (r *workerRepo) ListActive(ctx context.Context) ([]entity.Worker, error) {
	return r.list(ctx, r.db.rebind(
		`SELECT worker_id, status, last_heartbeat_tick, registered_at
		 FROM workers WHERE status <> ? ORDER BY worker_id`), string(constants.WorkerOffline))
}

func (r *workerRepo) ListIdle(ctx context.Context) ([]entity.Worker, error) {
	return r.list(ctx, r.db.rebind(
		`SELECT worker_id, status, last_heartbeat_tick, registered_at
		 FROM workers WHERE status = ? ORDER BY worker_id`), string(constants.WorkerIdle))
}

func (r *workerRepo) list(ctx context.Context, query string, args ...any) ([]entity.Worker, error) {
	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Worker
	for rows.Next() {
		var w entity.Worker
		var status string
		if err := rows.Scan(&w.ID, &status, &w.LastHeartbeatTick, &w.RegisteredAt); err != nil {
			return nil, err
		}
		w.Status = constants.WorkerStatus(status)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *workerRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.sql.QueryRowContext(ctx, r.db.rebind(
		`SELECT COUNT(*) FROM workers WHERE status <> ?`), string(constants.WorkerOffline)).Scan(&n)
	return n, err
}

func (r *workerRepo) MarkOffline(ctx context.Context, workerID string) error {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`UPDATE workers SET status = ? WHERE worker_id = ?`),
		string(constants.WorkerOffline), workerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`UPDATE leases SET worker_liveness = ? WHERE worker_id = ? AND progress_status = ?`),
		string(constants.LivenessOffline), workerID, string(constants.LeasePending)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.log.Info("worker marked offline", "worker_id", workerID)
	return nil
}
