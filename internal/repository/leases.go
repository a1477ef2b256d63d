package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pageharvest/pageharvest/constants"
	"github.com/pageharvest/pageharvest/internal/entity"
)

type LeaseRepository interface {
	// Assign creates a lease and flips job -> IN_PROGRESS, worker -> BUSY in
	// a single transaction. A pair that no longer qualifies (job claimed,
	// worker no longer idle) rolls back with an error.
	Assign(ctx context.Context, workerID string, jobID uuid.UUID) error
	// PendingJobForWorker returns the job leased to this worker, if any.
	// The bool distinguishes "no task" from an actual job id.
	PendingJobForWorker(ctx context.Context, workerID string) (uuid.UUID, bool, error)
	PendingByWorker(ctx context.Context, workerID string) ([]entity.Lease, error)
	// Complete finishes a job in one transaction: lease progress DONE, job
	// status + result text, worker back to IDLE. A completion from a worker
	// the monitor already declared dead is discarded: OFFLINE is terminal,
	// and ownership of the job has passed to recovery.
	Complete(ctx context.Context, workerID string, jobID uuid.UUID, resultText string, status constants.JobStatus) error
}

type leaseRepo struct {
	db  *DB
	log *slog.Logger
}

func NewLeaseRepository(db *DB, log *slog.Logger) LeaseRepository {
	if log == nil {
		log = slog.Default()
	}
	return &leaseRepo{db: db, log: log}
}

func (r *leaseRepo) Assign(ctx context.Context, workerID string, jobID uuid.UUID) error {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`INSERT INTO leases (lease_id, worker_id, job_id, progress_status, worker_liveness, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		uuid.New().String(), workerID, jobID.String(),
		string(constants.LeasePending), string(constants.LivenessOnline), now); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, r.db.rebind(
		`UPDATE jobs SET status = ? WHERE job_id = ? AND status = ?`),
		string(constants.JobInProgress), jobID.String(), string(constants.JobPending))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s is no longer pending", jobID)
	}

	res, err = tx.ExecContext(ctx, r.db.rebind(
		`UPDATE workers SET status = ? WHERE worker_id = ? AND status = ?`),
		string(constants.WorkerBusy), workerID, string(constants.WorkerIdle))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("worker %s is no longer idle", workerID)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.log.Info("job assigned", "worker_id", workerID, "job_id", jobID)
	return nil
}

func (r *leaseRepo) PendingJobForWorker(ctx context.Context, workerID string) (uuid.UUID, bool, error) {
	// Revoked leases (liveness flipped to offline) are not claimable; the
	// job behind them belongs to recovery.
	var idStr string
	err := r.db.sql.QueryRowContext(ctx, r.db.rebind(
		`SELECT job_id FROM leases WHERE worker_id = ? AND progress_status = ? AND worker_liveness = ? LIMIT 1`),
		workerID, string(constants.LeasePending), string(constants.LivenessOnline)).Scan(&idStr)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return uuid.Nil, false, nil
	case err != nil:
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("malformed job id %q: %w", idStr, err)
	}
	return id, true, nil
}

func (r *leaseRepo) PendingByWorker(ctx context.Context, workerID string) ([]entity.Lease, error) {
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(
		`SELECT lease_id, worker_id, job_id, progress_status, worker_liveness, created_at, finished_at
		 FROM leases WHERE worker_id = ? AND progress_status = ? ORDER BY created_at`),
		workerID, string(constants.LeasePending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Lease
	for rows.Next() {
		var (
			l        entity.Lease
			leaseID  string
			jobID    string
			progress string
			liveness string
			finished sql.NullTime
		)
		if err := rows.Scan(&leaseID, &l.WorkerID, &jobID, &progress, &liveness, &l.CreatedAt, &finished); err != nil {
			return nil, err
		}
		if l.ID, err = uuid.Parse(leaseID); err != nil {
			return nil, fmt.Errorf("malformed lease id %q: %w", leaseID, err)
		}
		if l.JobID, err = uuid.Parse(jobID); err != nil {
			return nil, fmt.Errorf("malformed job id %q: %w", jobID, err)
		}
		l.Progress = constants.LeaseProgress(progress)
		l.WorkerLiveness = constants.LivenessSnapshot(liveness)
		if finished.Valid {
			l.FinishedAt = &finished.Time
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *leaseRepo) Complete(ctx context.Context, workerID string, jobID uuid.UUID, resultText string, status constants.JobStatus) error {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	// The lease is the ownership record. Requiring its liveness snapshot to
	// still be online rejects completions from workers the monitor declared
	// dead mid-job: their job belongs to recovery now, and OFFLINE is
	// terminal for the identity.
	res, err := tx.ExecContext(ctx, r.db.rebind(
		`UPDATE leases SET progress_status = ?, finished_at = ?
		 WHERE worker_id = ? AND job_id = ? AND progress_status = ? AND worker_liveness = ?`),
		string(constants.LeaseDone), now, workerID, jobID.String(),
		string(constants.LeasePending), string(constants.LivenessOnline))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.log.Warn("completion from revoked lease discarded", "worker_id", workerID, "job_id", jobID)
		return nil
	}

	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`UPDATE jobs SET status = ?, result_text = ?, finished_at = ? WHERE job_id = ? AND status = ?`),
		string(status), resultText, now, jobID.String(), string(constants.JobInProgress)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`UPDATE workers SET status = ? WHERE worker_id = ? AND status = ?`),
		string(constants.WorkerIdle), workerID, string(constants.WorkerBusy)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.log.Info("job completed", "worker_id", workerID, "job_id", jobID, "status", status)
	return nil
}
