package dispatch

import (
	"context"
	"log/slog"

	"github.com/pageharvest/pageharvest/internal/repository"
)

// Recovery returns work orphaned by dead workers to the pool. It is the sole
// mechanism that requeues an in-progress job.
type Recovery struct {
	jobs   repository.JobRepository
	leases repository.LeaseRepository
	log    *slog.Logger
}

func NewRecovery(jobs repository.JobRepository, leases repository.LeaseRepository, log *slog.Logger) *Recovery {
	if log == nil {
		log = slog.Default()
	}
	return &Recovery{jobs: jobs, leases: leases, log: log}
}

// Requeue flips the jobs behind each dead worker's pending leases back to
// PENDING so the next assignment pass can hand them out again. A worker with
// no pending lease contributes nothing; per-worker errors are logged and the
// rest of the batch proceeds.
func (r *Recovery) Requeue(ctx context.Context, deadWorkers []string) {
	for _, workerID := range deadWorkers {
		leases, err := r.leases.PendingByWorker(ctx, workerID)
		if err != nil {
			r.log.Error("failed to read leases of dead worker", "worker_id", workerID, "error", err)
			continue
		}
		for _, lease := range leases {
			if err := r.jobs.Requeue(ctx, lease.JobID); err != nil {
				r.log.Error("failed to requeue orphaned job",
					"worker_id", workerID, "job_id", lease.JobID, "error", err)
				continue
			}
			r.log.Info("orphaned job returned to pool", "worker_id", workerID, "job_id", lease.JobID)
		}
	}
}
