package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pageharvest/pageharvest/constants"
	"github.com/pageharvest/pageharvest/internal/extract"
	"github.com/pageharvest/pageharvest/internal/repository"
)

// Worker is one member of the fleet: it registers an identity, reports
// liveness, claims leases addressed to it, and executes extraction jobs.
type Worker struct {
	workers repository.WorkerRepository
	jobs    repository.JobRepository
	leases  repository.LeaseRepository
	engine  *extract.Engine

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	tick              func() int
	log               *slog.Logger

	id string
}

type Option func(*Worker)

func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.heartbeatInterval = d
		}
	}
}

// WithTickSource overrides the minute-of-hour clock, for tests.
func WithTickSource(tick func() int) Option {
	return func(w *Worker) {
		if tick != nil {
			w.tick = tick
		}
	}
}

func New(workers repository.WorkerRepository, jobs repository.JobRepository, leases repository.LeaseRepository, engine *extract.Engine, log *slog.Logger, opts ...Option) *Worker {
	if log == nil {
		log = slog.Default()
	}
	w := &Worker{
		workers:           workers,
		jobs:              jobs,
		leases:            leases,
		engine:            engine,
		pollInterval:      20 * time.Second,
		heartbeatInterval: 20 * time.Second,
		tick:              func() int { return time.Now().Minute() },
		log:               log,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// ID returns the registered worker identity, empty before Run registers.
func (w *Worker) ID() string { return w.id }

// Run registers a fresh identity and drives the claim/execute loop until ctx
// is cancelled. Heartbeats run on their own timer and keep flowing while a
// job executes, so a long extraction cannot make a live worker look dead.
func (w *Worker) Run(ctx context.Context) error {
	id, err := w.workers.Register(ctx, w.tick())
	if err != nil {
		return err
	}
	w.id = id
	w.log = w.log.With("worker_id", id)
	w.log.Info("worker starting", "poll_interval", w.pollInterval)

	go w.heartbeatLoop(ctx)

	for {
		w.iterate(ctx)
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

// iterate performs one claim/execute pass. Store errors abort the pass and
// are retried on the next one.
func (w *Worker) iterate(ctx context.Context) {
	jobID, ok, err := w.leases.PendingJobForWorker(ctx, w.id)
	if err != nil {
		w.log.Error("task claim failed", "error", err)
		return
	}
	if !ok {
		w.log.Debug("no task found")
		return
	}
	w.execute(ctx, jobID)
}

func (w *Worker) execute(ctx context.Context, jobID uuid.UUID) {
	w.log.Info("executing task", "job_id", jobID)

	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		w.log.Error("failed to load claimed job", "job_id", jobID, "error", err)
		return
	}

	start := time.Now()
	res := w.engine.Run(ctx, job.Pages)

	status := constants.JobDone
	if res.AllFailed {
		status = constants.JobFailed
	}
	if err := w.leases.Complete(ctx, w.id, jobID, res.Text, status); err != nil {
		w.log.Error("failed to persist job completion", "job_id", jobID, "error", err)
		return
	}
	w.log.Info("task finished",
		"job_id", jobID,
		"status", status,
		"pages_used", res.PagesUsed,
		"pages_failed", len(res.Failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	// Beat once immediately: registration already wrote a tick, but the
	// first timer firing could otherwise be a full interval away.
	w.beat(ctx)

	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.beat(ctx)
		}
	}
}

func (w *Worker) beat(ctx context.Context) {
	if err := w.workers.Heartbeat(ctx, w.id, w.tick()); err != nil {
		if ctx.Err() == nil {
			w.log.Error("heartbeat update failed", "error", err)
		}
	}
}
