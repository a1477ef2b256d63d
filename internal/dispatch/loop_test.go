package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageharvest/pageharvest/internal/entity"
)

// countingWorkerRepo wraps the fake to count liveness sweeps.
type countingWorkerRepo struct {
	fakeWorkerRepo
	listActiveCalls int
}

func (c *countingWorkerRepo) ListActive(ctx context.Context) ([]entity.Worker, error) {
	c.listActiveCalls++
	return c.fakeWorkerRepo.ListActive(ctx)
}

func newTestLoop(workers *countingWorkerRepo, jobs *fakeJobRepo, leases *fakeLeaseRepo, opts ...LoopOption) *Loop {
	log := discardLogger()
	monitor := NewMonitor(workers, log)
	monitor.tick = func() int { return 0 }
	return NewLoop(
		NewAssigner(workers, jobs, leases, log),
		monitor,
		NewRecovery(jobs, leases, log),
		NewReporter(&fakeNotifier{}, workers, log),
		log,
		opts...,
	)
}

func TestIterateRunsLivenessEveryNthPass(t *testing.T) {
	workers := &countingWorkerRepo{}
	l := newTestLoop(workers, &fakeJobRepo{}, &fakeLeaseRepo{}, WithLivenessEvery(3))
	ctx := context.Background()

	cycles := 0
	for i := 0; i < 6; i++ {
		require.NoError(t, l.iterate(ctx, &cycles))
	}
	assert.Equal(t, 2, workers.listActiveCalls, "six passes at every-3 means two sweeps")
	assert.Equal(t, 0, cycles, "counter resets after each sweep")
}

func TestLivenessCycleRecoversAndReports(t *testing.T) {
	j1 := uuid.New()
	workers := &countingWorkerRepo{fakeWorkerRepo: fakeWorkerRepo{
		active: []entity.Worker{{ID: "000000000", LastHeartbeatTick: 30}},
	}}
	jobs := &fakeJobRepo{}
	leases := &fakeLeaseRepo{pendingLeases: map[string][]entity.Lease{
		"000000000": {{JobID: j1}},
	}}
	l := newTestLoop(workers, jobs, leases)

	require.NoError(t, l.livenessCycle(context.Background()))

	// Tick source says 0, heartbeat says 30: the worker is dead, its job is
	// requeued, and it is marked offline.
	assert.Equal(t, []uuid.UUID{j1}, jobs.requeued)
	assert.Equal(t, []string{"000000000"}, workers.markedOffline)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	workers := &countingWorkerRepo{}
	l := newTestLoop(workers, &fakeJobRepo{}, &fakeLeaseRepo{},
		WithInterval(time.Millisecond), WithLivenessEvery(2))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, workers.listActiveCalls, 2,
		"the up-front sweep plus at least one periodic sweep must have run")
}
