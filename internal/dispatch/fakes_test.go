package dispatch

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pageharvest/pageharvest/constants"
	"github.com/pageharvest/pageharvest/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWorkerRepo struct {
	active      []entity.Worker
	idle        []entity.Worker
	activeErr   error
	idleErr     error
	countActive int
	countErr    error

	markedOffline []string
	offlineErr    map[string]error
}

func (f *fakeWorkerRepo) Register(ctx context.Context, tick int) (string, error) {
	return "", nil
}

func (f *fakeWorkerRepo) Heartbeat(ctx context.Context, workerID string, tick int) error {
	return nil
}

func (f *fakeWorkerRepo) ListActive(ctx context.Context) ([]entity.Worker, error) {
	return f.active, f.activeErr
}

func (f *fakeWorkerRepo) ListIdle(ctx context.Context) ([]entity.Worker, error) {
	return f.idle, f.idleErr
}

func (f *fakeWorkerRepo) CountActive(ctx context.Context) (int, error) {
	return f.countActive, f.countErr
}

func (f *fakeWorkerRepo) MarkOffline(ctx context.Context, workerID string) error {
	f.markedOffline = append(f.markedOffline, workerID)
	if err, ok := f.offlineErr[workerID]; ok {
		return err
	}
	return nil
}

type fakeJobRepo struct {
	pending    []entity.Job
	pendingErr error

	requeued   []uuid.UUID
	requeueErr map[uuid.UUID]error
}

func (f *fakeJobRepo) Enqueue(ctx context.Context, pages []string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (f *fakeJobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListPending(ctx context.Context) ([]entity.Job, error) {
	return f.pending, f.pendingErr
}

func (f *fakeJobRepo) ListFinished(ctx context.Context) ([]entity.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	f.requeued = append(f.requeued, id)
	if err, ok := f.requeueErr[id]; ok {
		return err
	}
	return nil
}

type assignedPair struct {
	workerID string
	jobID    uuid.UUID
}

type fakeLeaseRepo struct {
	assigned  []assignedPair
	assignErr map[string]error // keyed by worker id

	pendingLeases map[string][]entity.Lease
	pendingErr    map[string]error
}

func (f *fakeLeaseRepo) Assign(ctx context.Context, workerID string, jobID uuid.UUID) error {
	f.assigned = append(f.assigned, assignedPair{workerID: workerID, jobID: jobID})
	if err, ok := f.assignErr[workerID]; ok {
		return err
	}
	return nil
}

func (f *fakeLeaseRepo) PendingJobForWorker(ctx context.Context, workerID string) (uuid.UUID, bool, error) {
	leases := f.pendingLeases[workerID]
	if len(leases) == 0 {
		return uuid.Nil, false, nil
	}
	return leases[0].JobID, true, nil
}

func (f *fakeLeaseRepo) PendingByWorker(ctx context.Context, workerID string) ([]entity.Lease, error) {
	if err, ok := f.pendingErr[workerID]; ok {
		return nil, err
	}
	return f.pendingLeases[workerID], nil
}

func (f *fakeLeaseRepo) Complete(ctx context.Context, workerID string, jobID uuid.UUID, resultText string, status constants.JobStatus) error {
	return nil
}
