package pools

import (
	"context"
	"log"
	"time"
)

// Refresher runs the catalog refresh on a fixed interval until its context
// is cancelled. A failed cycle is logged and retried on the next tick.
type Refresher struct {
	svc      *Service
	interval time.Duration
	logger   *log.Logger
}

// NewRefresher creates a refresher. A non-positive interval defaults to
// 10 minutes.
func NewRefresher(svc *Service, interval time.Duration, logger *log.Logger) *Refresher {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Refresher{svc: svc, interval: interval, logger: logger}
}

// Run refreshes immediately, then on every tick. Blocks until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	if _, err := r.svc.Refresh(cycleCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Printf("[pools] refresh cycle failed: %v", err)
	}
}
