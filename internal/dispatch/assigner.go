package dispatch

import (
	"context"
	"log/slog"

	"github.com/pageharvest/pageharvest/internal/repository"
)

// Assigner pairs idle workers with pending jobs positionally: the k-th idle
// worker (store order) receives the k-th pending job (store order). Leftover
// jobs stay pending, leftover workers stay idle.
type Assigner struct {
	workers repository.WorkerRepository
	jobs    repository.JobRepository
	leases  repository.LeaseRepository
	log     *slog.Logger
}

func NewAssigner(workers repository.WorkerRepository, jobs repository.JobRepository, leases repository.LeaseRepository, log *slog.Logger) *Assigner {
	if log == nil {
		log = slog.Default()
	}
	return &Assigner{workers: workers, jobs: jobs, leases: leases, log: log}
}

// Run performs one assignment pass. Each pairing is an independent unit of
// work: a failed pair is logged and does not block the pairs after it. Only
// a failure to read the store aborts the pass.
func (a *Assigner) Run(ctx context.Context) error {
	pending, err := a.jobs.ListPending(ctx)
	if err != nil {
		return err
	}
	idle, err := a.workers.ListIdle(ctx)
	if err != nil {
		return err
	}
	a.log.Debug("assignment pass", "pending_jobs", len(pending), "idle_workers", len(idle))

	n := len(idle)
	if len(pending) < n {
		n = len(pending)
	}
	for k := 0; k < n; k++ {
		if err := a.leases.Assign(ctx, idle[k].ID, pending[k].ID); err != nil {
			a.log.Error("assignment failed",
				"worker_id", idle[k].ID, "job_id", pending[k].ID, "error", err)
		}
	}
	return nil
}
