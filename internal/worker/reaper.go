package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainrepos "paysync.backend/internal/domain/repositories"
	"paysync.backend/internal/metrics"
	"paysync.backend/pkg/logger"
)

// Reaper periodically reclaims jobs whose processing lease expired
// without a Complete or Fail call — a worker that crashed or was
// killed mid-job must not silently drop it.
type Reaper struct {
	queue    domainrepos.JobQueue
	interval time.Duration
	stop     chan struct{}
}

func NewReaper(queue domainrepos.JobQueue, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{queue: queue, interval: interval, stop: make(chan struct{})}
}

func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				r.reapOnce(ctx)
			}
		}
	}()
}

func (r *Reaper) Stop() {
	close(r.stop)
}

func (r *Reaper) reapOnce(ctx context.Context) {
	n, err := r.queue.ReapStale(ctx)
	if err != nil {
		logger.Error(ctx, "reap stale jobs failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info(ctx, "reaped stale jobs", zap.Int("count", n))
		metrics.JobsReaped.Add(float64(n))
	}
}
