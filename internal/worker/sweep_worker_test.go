package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ownerdesk/ticket-engine/internal/repository/memory"
	"github.com/ownerdesk/ticket-engine/internal/service"
)

type countingSweeper struct {
	runs   atomic.Int32
	result service.SweepResult
	err    error
}

func (s *countingSweeper) CheckAllOpenTickets(ctx context.Context) (service.SweepResult, error) {
	s.runs.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return service.SweepResult{}, errors.New("sweep without deadline")
	}
	return s.result, s.err
}

func TestRunOnceReturnsResult(t *testing.T) {
	sweeper := &countingSweeper{result: service.SweepResult{Evaluated: 3, AlertsFired: 2}}
	scheduler, err := NewSweepScheduler(sweeper, "@every 1h", time.UTC, time.Second, nil)
	require.NoError(t, err)

	result := scheduler.RunOnce(context.Background())
	assert.Equal(t, 3, result.Evaluated)
	assert.Equal(t, 2, result.AlertsFired)
	assert.EqualValues(t, 1, sweeper.runs.Load())
}

func TestRunOnceLogsSweepSummaryOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	store := memory.NewStore()
	alerts := service.NewAlertService(service.AlertDependencies{
		TicketRepo: store.Tickets(),
		AgentRepo:  store.Agents(),
		TeamRepo:   store.Teams(),
		AlertRepo:  store.Alerts(),
		Logger:     logger,
	})
	scheduler, err := NewSweepScheduler(alerts, "@every 1h", time.UTC, time.Second, logger)
	require.NoError(t, err)

	scheduler.RunOnce(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("alert sweep finished").Len())
}

func TestRunOnceLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sweeper := &countingSweeper{err: errors.New("db down")}
	scheduler, err := NewSweepScheduler(sweeper, "@every 1h", nil, time.Second, zap.New(core))
	require.NoError(t, err)

	scheduler.RunOnce(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("alert sweep failed").Len())
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	sweeper := &countingSweeper{}
	scheduler, err := NewSweepScheduler(sweeper, "@every 1s", time.UTC, time.Second, nil)
	require.NoError(t, err)

	scheduler.Start()
	assert.Eventually(t, func() bool { return sweeper.runs.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	scheduler.Stop(ctx)
}

func TestInvalidSchedule(t *testing.T) {
	_, err := NewSweepScheduler(&countingSweeper{}, "every minute", time.UTC, 0, nil)
	assert.Error(t, err)
}
