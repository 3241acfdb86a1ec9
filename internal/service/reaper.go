package service

import (
	"context"
	"time"
)

type holdSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// HoldReaper periodically deletes expired holds.  Correctness never
// depends on it; expired holds are already ignored by every read.
type HoldReaper struct {
	ledger   holdSweeper
	interval time.Duration
}

func NewHoldReaper(ledger holdSweeper, interval time.Duration) *HoldReaper {
	return &HoldReaper{ledger: ledger, interval: interval}
}

// Start blocks until ctx is done.  A non-positive interval returns at once.
func (r *HoldReaper) Start(ctx context.Context) {
	if r.interval <= 0 {
		reaperLog.Info("reaper disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	reaperLog.Infof("reaper started interval=%s", r.interval)
	for {
		select {
		case <-ctx.Done():
			reaperLog.Info("reaper stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *HoldReaper) tick(ctx context.Context) {
	n, err := r.ledger.Sweep(ctx)
	if err != nil {
		reaperLog.Errorf("action=sweep err=%q", err.Error())
		return
	}
	if n > 0 {
		reaperLog.Infof("action=sweep deleted=%d", n)
	}
}
