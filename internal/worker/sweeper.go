package worker

import (
	"context"
	"log/slog"
	"time"
)

// SweepFunc performs one sweep and reports how many records it changed
type SweepFunc func(ctx context.Context) (int64, error)

// Sweeper runs a maintenance sweep on a fixed interval
type Sweeper struct {
	name     string
	sweep    SweepFunc
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper. A non-positive interval defaults to one minute.
func NewSweeper(name string, sweep SweepFunc, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		name:     name,
		sweep:    sweep,
		interval: interval,
		logger:   logger.With(slog.String("sweeper", name)),
	}
}

// Expirer persists the expiration of subscriptions whose window has elapsed
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// NewExpirySweeper marks overdue trial and paid subscriptions as expired.
// Access checks never depend on it; it keeps the stored status in line with the
// effective one for reporting and renewals.
func NewExpirySweeper(expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	return NewSweeper("subscription_expiry", expirer.ExpireOverdue, interval, logger)
}

// StaleRecoverer closes campaigns stuck in sending
type StaleRecoverer interface {
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NewStaleCampaignSweeper closes campaigns that have been sending for longer than
// olderThan, which only happens when their dispatch died before finishing.
func NewStaleCampaignSweeper(recoverer StaleRecoverer, olderThan, interval time.Duration, logger *slog.Logger) *Sweeper {
	return NewSweeper("stale_campaigns", func(ctx context.Context) (int64, error) {
		return recoverer.RecoverStale(ctx, olderThan)
	}, interval, logger)
}

// Run sweeps immediately and then on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("starting sweeper", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.SweepOnce(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce runs one sweep and reports how many records were changed
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("sweep failed", slog.String("error", err.Error()))
		}
		return 0
	}

	if n > 0 {
		s.logger.Info("sweep changed records", slog.Int64("count", n))
	}
	return n
}
