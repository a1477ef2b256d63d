package dispatch

import (
	"context"
	"log/slog"
	"time"
)

// Loop is the dispatcher control loop: an assignment pass every interval,
// and every Nth iteration a liveness sweep followed by recovery and
// notification on the same dead list. All loop state (cycle counter,
// notification history) lives on this value.
type Loop struct {
	assigner *Assigner
	monitor  *Monitor
	recovery *Recovery
	reporter *Reporter

	interval      time.Duration
	livenessEvery int
	backoff       time.Duration
	log           *slog.Logger
}

type LoopOption func(*Loop)

func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithLivenessEvery(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.livenessEvery = n
		}
	}
}

func WithErrorBackoff(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.backoff = d
		}
	}
}

func NewLoop(assigner *Assigner, monitor *Monitor, recovery *Recovery, reporter *Reporter, log *slog.Logger, opts ...LoopOption) *Loop {
	if log == nil {
		log = slog.Default()
	}
	l := &Loop{
		assigner:      assigner,
		monitor:       monitor,
		recovery:      recovery,
		reporter:      reporter,
		interval:      20 * time.Second,
		livenessEvery: 3,
		backoff:       30 * time.Second,
		log:           log,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Run drives the loop until ctx is cancelled. An error inside one iteration
// is logged and followed by a longer backoff sleep; the loop itself never
// terminates on its own.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("dispatcher loop starting",
		"interval", l.interval, "liveness_every", l.livenessEvery)

	// One liveness cycle up front so workers dead across a dispatcher
	// restart are recovered before the first assignment pass.
	l.livenessCycle(ctx)

	cycles := 0
	for {
		delay := l.interval
		if err := l.iterate(ctx, &cycles); err != nil {
			if ctx.Err() != nil {
				l.log.Info("dispatcher loop stopping", "reason", ctx.Err())
				return ctx.Err()
			}
			l.log.Error("dispatcher iteration failed", "error", err)
			delay = l.backoff
		}
		select {
		case <-ctx.Done():
			l.log.Info("dispatcher loop stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (l *Loop) iterate(ctx context.Context, cycles *int) error {
	if err := l.assigner.Run(ctx); err != nil {
		return err
	}
	*cycles++
	if *cycles >= l.livenessEvery {
		*cycles = 0
		return l.livenessCycle(ctx)
	}
	return nil
}

// livenessCycle runs monitor -> recovery -> notification, in that order, so
// recovery and the digest both see the exact dead list this sweep produced.
func (l *Loop) livenessCycle(ctx context.Context) error {
	dead, err := l.monitor.Check(ctx)
	if err != nil {
		return err
	}
	if len(dead) == 0 {
		return nil
	}
	l.recovery.Requeue(ctx, dead)
	l.reporter.Report(ctx, dead)
	return nil
}
