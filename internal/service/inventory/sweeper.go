package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RequestExpirer closes hospital requests whose deadline has passed.
type RequestExpirer interface {
	ExpireOverdueHospitalRequests(ctx context.Context) (int, error)
}

// Sweeper periodically expires overdue units and hospital requests. Both
// steps use conditional updates, so a sweep racing a reservation is safe.
type Sweeper struct {
	inventory Service
	requests  RequestExpirer
	interval  time.Duration
	logger    *zap.Logger
}

func NewSweeper(inventory Service, requests RequestExpirer, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		inventory: inventory,
		requests:  requests,
		interval:  interval,
		logger:    logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("expiry sweeper started", zap.Duration("interval", w.interval))
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *Sweeper) RunOnce(ctx context.Context) {
	units, err := w.inventory.SweepAll(ctx)
	if err != nil {
		w.logger.Error("unit expiry sweep failed", zap.Error(err))
	}

	requests := 0
	if w.requests != nil {
		requests, err = w.requests.ExpireOverdueHospitalRequests(ctx)
		if err != nil {
			w.logger.Error("hospital request expiry failed", zap.Error(err))
		}
	}

	if units > 0 || requests > 0 {
		w.logger.Info("sweep completed", zap.Int("units_expired", units), zap.Int("requests_expired", requests))
	}
}
