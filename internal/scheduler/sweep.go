package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"imobportal_backend/platform/config"
	"imobportal_backend/platform/logger"
)

// SweepDispatcher enqueues the periodic roster sweep. It is an explicit
// singleton owned by the scheduler process: Run refuses to start twice, so
// a wiring mistake can never double the sweep cadence.
type SweepDispatcher struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger

	started atomic.Bool
}

func NewSweepDispatcher(cfg config.SchedulerConfig, client *Client, log *logger.Logger) *SweepDispatcher {
	interval := cfg.GetSweepInterval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &SweepDispatcher{
		client:   client,
		interval: interval,
		log:      log,
	}
}

// Run ticks until the context is cancelled, enqueuing one sweep per tick.
// The first sweep fires immediately so a fresh deployment does not wait a
// full interval for its snapshots.
func (d *SweepDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}
	if !d.started.CompareAndSwap(false, true) {
		d.log.Warn("sweep dispatcher already running, ignoring second start")
		return
	}

	d.log.Info("sweep dispatcher started", "interval", d.interval.String())

	d.enqueue(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("sweep dispatcher stopped")
			return
		case <-ticker.C:
			d.enqueue(ctx)
		}
	}
}

func (d *SweepDispatcher) enqueue(ctx context.Context) {
	if err := d.client.EnqueueSweep(ctx, d.interval); err != nil {
		d.log.Warn("sweep enqueue failed", "error", err)
	}
}
