package report

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher recomputes the cached dashboard on a fixed interval.
type Refresher struct {
	service  Service
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRefresher(service Service, interval time.Duration, logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = 4 * time.Hour
	}
	return &Refresher{service: service, interval: interval, logger: logger}
}

// Start runs one refresh immediately, then one per interval, until Stop is
// called or ctx is done. Calling Start twice is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("report refresher started", zap.Duration("interval", r.interval))
}

// Stop cancels the loop and waits for an in-flight refresh to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.logger.Info("report refresher stopped")
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)
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
	start := time.Now()
	if _, err := r.service.RefreshDashboard(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("dashboard refresh failed", zap.Error(err))
		return
	}
	r.logger.Debug("dashboard refreshed", zap.Duration("took", time.Since(start)))
}
