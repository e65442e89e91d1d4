package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vendorpay/vendorpay/internal/logging"
	"github.com/vendorpay/vendorpay/internal/payments"
)

// Sweeper runs the scheduled payment pass.
type Sweeper interface {
	ProcessScheduledPayments(ctx context.Context, force bool) (payments.SweepResult, error)
}

// Scheduler triggers an unforced sweep on a fixed interval. The sweep itself
// decides whether today is a processing day.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
	after    func()
}

// New builds a scheduler. after, when set, runs once each tick finishes.
func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger, after func()) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, logger: logger.With("component", "scheduler"), after: after}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one unforced sweep.
func (s *Scheduler) Tick(ctx context.Context) {
	res, err := s.sweeper.ProcessScheduledPayments(ctx, false)
	switch {
	case errors.Is(err, payments.ErrSweepInProgress):
		s.logger.Info("sweep already running, tick skipped")
		return
	case err != nil:
		s.logger.Error("scheduled sweep failed", "error", err)
	default:
		s.logger.Debug("scheduled sweep", "processed", res.Processed, "skipped", res.Skipped, "pending", res.Pending)
	}
	if s.after != nil {
		s.after()
	}
}
