package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/pageharvest/pageharvest/internal/repository"
)

// heartbeatWindow is the number of trailing ticks (inclusive) still counted
// as alive. Ticks are minute-of-hour values, so the comparison wraps at 60.
const heartbeatWindow = 3

// Monitor classifies every non-offline worker as alive or dead from its last
// reported heartbeat tick.
type Monitor struct {
	workers repository.WorkerRepository
	tick    func() int
	log     *slog.Logger
}

func NewMonitor(workers repository.WorkerRepository, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		workers: workers,
		tick:    func() int { return time.Now().Minute() },
		log:     log,
	}
}

// Check sweeps the fleet and returns the ordered list of newly-dead worker
// ids. An empty list with a nil error means the sweep ran and found nobody
// dead; a non-nil error means the sweep itself could not run.
//
// Marking a dead worker offline is best-effort: a failed update is logged
// and the sweep moves on to the next worker.
func (m *Monitor) Check(ctx context.Context) ([]string, error) {
	active, err := m.workers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	m.log.Debug("liveness sweep", "active_workers", len(active))

	current := m.tick()
	var dead []string
	for _, w := range active {
		if tickAlive(current, w.LastHeartbeatTick) {
			continue
		}
		m.log.Warn("worker missed its liveness window",
			"worker_id", w.ID, "last_heartbeat_tick", w.LastHeartbeatTick, "current_tick", current)
		dead = append(dead, w.ID)
		if err := m.workers.MarkOffline(ctx, w.ID); err != nil {
			m.log.Error("failed to mark worker offline", "worker_id", w.ID, "error", err)
			continue
		}
	}
	if len(dead) == 0 {
		m.log.Info("all workers alive", "count", len(active))
	}
	return dead, nil
}

// tickAlive reports whether a heartbeat tick falls inside the liveness window
// of the current minute-of-hour. The window is heartbeatWindow ticks wide,
// inclusive, and wraps across the top of the hour.
func tickAlive(current, last int) bool {
	for i := 0; i < heartbeatWindow; i++ {
		if last == (current-i+60)%60 {
			return true
		}
	}
	return false
}
