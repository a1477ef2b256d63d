package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pageharvest/pageharvest/constants"
	"github.com/pageharvest/pageharvest/internal/common"
	"github.com/pageharvest/pageharvest/internal/entity"
)

// payloadSchema constrains a job payload to a non-empty ordered list of page
// references. Validated on enqueue so malformed payloads never reach a worker.
const payloadSchema = `{
	"type": "array",
	"items": {"type": "string", "minLength": 1},
	"minItems": 1
}`

type JobRepository interface {
	Enqueue(ctx context.Context, pages []string) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// ListPending returns PENDING jobs in store order (creation order).
	ListPending(ctx context.Context) ([]entity.Job, error)
	// ListFinished returns DONE and FAILED jobs, most recently finished last.
	ListFinished(ctx context.Context) ([]entity.Job, error)
	// Requeue flips an IN_PROGRESS job back to PENDING. Jobs in any other
	// state are left untouched.
	Requeue(ctx context.Context, id uuid.UUID) error
}

type jobRepo struct {
	db     *DB
	log    *slog.Logger
	schema *jsonschema.Schema
}

func NewJobRepository(db *DB, log *slog.Logger) (JobRepository, error) {
	if log == nil {
		log = slog.Default()
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("payload.json", strings.NewReader(payloadSchema)); err != nil {
		return nil, common.WrapError(err, "add payload schema")
	}
	schema, err := compiler.Compile("payload.json")
	if err != nil {
		return nil, common.WrapError(err, "compile payload schema")
	}
	return &jobRepo{db: db, log: log, schema: schema}, nil
}

func (r *jobRepo) Enqueue(ctx context.Context, pages []string) (uuid.UUID, error) {
	payload, err := json.Marshal(pages)
	if err != nil {
		return uuid.Nil, err
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return uuid.Nil, err
	}
	if err := r.schema.Validate(decoded); err != nil {
		return uuid.Nil, common.NewAppError("BAD_PAYLOAD", "job payload rejected", err)
	}

	id := uuid.New()
	_, err = r.db.sql.ExecContext(ctx, r.db.rebind(
		`INSERT INTO jobs (job_id, status, payload, created_at) VALUES (?, ?, ?, ?)`),
		id.String(), string(constants.JobPending), string(payload), time.Now().UTC())
	if err != nil {
		r.log.Error("job enqueue failed", "error", err)
		return uuid.Nil, err
	}
	r.log.Info("job enqueued", "job_id", id, "pages", len(pages))
	return id, nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.db.sql.QueryRowContext(ctx, r.db.rebind(
		`SELECT job_id, status, payload, result_text, created_at, finished_at
		 FROM jobs WHERE job_id = ?`), id.String())
	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return job, err
}

func (r *jobRepo) ListPending(ctx context.Context) ([]entity.Job, error) {
	return r.list(ctx, r.db.rebind(
		`SELECT job_id, status, payload, result_text, created_at, finished_at
		 FROM jobs WHERE status = ? ORDER BY created_at, job_id`), string(constants.JobPending))
}

func (r *jobRepo) ListFinished(ctx context.Context) ([]entity.Job, error) {
	return r.list(ctx, r.db.rebind(
		`SELECT job_id, status, payload, result_text, created_at, finished_at
		 FROM jobs WHERE status IN (?, ?) ORDER BY finished_at, job_id`),
		string(constants.JobDone), string(constants.JobFailed))
}

func (r *jobRepo) list(ctx context.Context, query string, args ...any) ([]entity.Job, error) {
	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (r *jobRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.sql.ExecContext(ctx, r.db.rebind(
		`UPDATE jobs SET status = ? WHERE job_id = ? AND status = ?`),
		string(constants.JobPending), id.String(), string(constants.JobInProgress))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.log.Info("job requeued", "job_id", id)
	}
	return nil
}

func scanJob(scan func(dest ...any) error) (*entity.Job, error) {
	var (
		job      entity.Job
		idStr    string
		status   string
		payload  string
		result   sql.NullString
		finished sql.NullTime
	)
	if err := scan(&idStr, &status, &payload, &result, &job.CreatedAt, &finished); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("malformed job id %q: %w", idStr, err)
	}
	job.ID = id
	job.Status = constants.JobStatus(status)
	if err := json.Unmarshal([]byte(payload), &job.Pages); err != nil {
		return nil, fmt.Errorf("job %s payload: %w", idStr, err)
	}
	if result.Valid {
		job.ResultText = &result.String
	}
	if finished.Valid {
		job.FinishedAt = &finished.Time
	}
	return &job, nil
}
