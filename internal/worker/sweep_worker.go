// Package worker runs the background jobs of the engine.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/service"
)

// Sweeper evaluates escalation rules over every open ticket.
type Sweeper interface {
	CheckAllOpenTickets(ctx context.Context) (service.SweepResult, error)
}

// SweepScheduler triggers the alert sweep on a cron schedule. A run that is
// still going when the next tick fires makes that tick a no-op.
type SweepScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
	timeout time.Duration
}

// NewSweepScheduler parses spec (standard five fields or a descriptor such as
// "@every 1m") and registers the sweep job. Runs are bounded by timeout when
// it is positive.
func NewSweepScheduler(sweeper Sweeper, spec string, loc *time.Location, timeout time.Duration, logger *zap.Logger) (*SweepScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &SweepScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		sweeper: sweeper,
		logger:  logger,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling in the background.
func (s *SweepScheduler) Start() {
	s.cron.Start()
	s.logger.Info("alert sweep scheduled")
}

// Stop halts scheduling and waits for a running sweep, or for ctx to end.
func (s *SweepScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("alert sweep still running at shutdown")
	}
}

// RunOnce performs a single sweep. The sweeper logs its own summary; only
// failures are logged here.
func (s *SweepScheduler) RunOnce(ctx context.Context) service.SweepResult {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	result, err := s.sweeper.CheckAllOpenTickets(ctx)
	if err != nil {
		s.logger.Error("alert sweep failed", zap.Error(err))
	}
	return result
}

// StartNotificationWorker subscribes the notification stubs to domain events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
