package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
)

func TestTicketOwnerIsWrittenOnlyByClaimAndTransfer(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tickets := store.Tickets()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	intruder := "intruder"
	require.NoError(t, tickets.Create(ctx, &domain.Ticket{ID: "t1", Reference: "TCK-1", Status: domain.TicketStatusNew, OwnerID: &intruder}))
	stored, err := tickets.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, stored.OwnerID)

	ok, err := tickets.ClaimOwner(ctx, "t1", "a1", now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tickets.ClaimOwner(ctx, "t1", "a2", now)
	require.NoError(t, err)
	assert.False(t, ok)

	stored.OwnerID = &intruder
	stored.Reference = "changed"
	stored.Subject = "new subject"
	require.NoError(t, tickets.Update(ctx, stored))
	stored, err = tickets.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "a1", *stored.OwnerID)
	assert.Equal(t, "TCK-1", stored.Reference)
	assert.Equal(t, "new subject", stored.Subject)

	ok, err = tickets.TransferOwner(ctx, "t1", "a2", "a3", now)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = tickets.TransferOwner(ctx, "t1", "a1", "a3", now)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = tickets.ClaimOwner(ctx, "missing", "a1", now)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestReserveCapacityIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	agents := store.Agents()
	require.NoError(t, agents.Create(ctx, &domain.Agent{ID: "a1", MaxTickets: 3, IsActive: true}))

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := agents.ReserveCapacity(ctx, "a1")
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 3, granted.Load())
	agent, err := agents.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, agent.CurrentTickets)

	require.NoError(t, agents.AdjustTicketCount(ctx, "a1", -10))
	agent, err = agents.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, agent.CurrentTickets)
}

func TestEnvelopeClaimAndPendingFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	envelopes := store.Envelopes()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	team, target := "billing", "expert"
	require.NoError(t, envelopes.Create(ctx, &domain.Envelope{ID: "e1", TicketID: "t1", TeamID: &team, Status: domain.EnvelopeStatusPending}))
	require.NoError(t, envelopes.Create(ctx, &domain.Envelope{ID: "e2", TicketID: "t1", TargetAgentID: &target, Status: domain.EnvelopeStatusPending}))

	pending, err := envelopes.ListPending(ctx, repository.PendingEnvelopeFilter{TeamIDs: []string{"billing"}, TargetAgentID: &target})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	ok, err := envelopes.Claim(ctx, "e1", "someone", now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = envelopes.Claim(ctx, "e1", "other", now)
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err = envelopes.ListPending(ctx, repository.PendingEnvelopeFilter{TeamIDs: []string{"billing"}})
	require.NoError(t, err)
	assert.Empty(t, pending)

	done, err := envelopes.Complete(ctx, "e2", "summary", now)
	require.NoError(t, err)
	assert.False(t, done, "pending envelopes cannot complete")
	done, err = envelopes.Complete(ctx, "e1", "summary", now)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAlertDeduplication(t *testing.T) {
	ctx := context.Background()
	alerts := NewStore().Alerts()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := &domain.Alert{ID: "al1", TicketID: "t1", Condition: domain.AlertConditionNotUpdated, Level: 1, RecipientsNotified: []string{"a1"}}
	created, err := alerts.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = alerts.CreateIfAbsent(ctx, &domain.Alert{ID: "al2", TicketID: "t1", Condition: domain.AlertConditionNotUpdated, Level: 1})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = alerts.CreateIfAbsent(ctx, &domain.Alert{ID: "al3", TicketID: "t1", Condition: domain.AlertConditionNotUpdated, Level: 2})
	require.NoError(t, err)
	assert.True(t, created)

	acked, err := alerts.Acknowledge(ctx, "al1", "a1", now)
	require.NoError(t, err)
	assert.True(t, acked)
	acked, err = alerts.Acknowledge(ctx, "al1", "a1", now)
	require.NoError(t, err)
	assert.False(t, acked)

	created, err = alerts.CreateIfAbsent(ctx, &domain.Alert{ID: "al4", TicketID: "t1", Condition: domain.AlertConditionNotUpdated, Level: 1})
	require.NoError(t, err)
	assert.True(t, created)

	all, err := alerts.ListByTicket(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCalibrationEnqueueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	calibrations := NewStore().Calibrations()

	item := &domain.CalibrationItem{ID: "c1", ResolutionID: "r1", Reason: domain.CalibrationReasonTier3, ReviewStatus: domain.ReviewStatusPending}
	added, err := calibrations.Enqueue(ctx, item)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = calibrations.Enqueue(ctx, &domain.CalibrationItem{ID: "c2", ResolutionID: "r1", Reason: domain.CalibrationReasonTier3})
	require.NoError(t, err)
	assert.False(t, added)

	added, err = calibrations.Enqueue(ctx, &domain.CalibrationItem{ID: "c3", ResolutionID: "r1", Reason: domain.CalibrationReasonRandomSample})
	require.NoError(t, err)
	assert.True(t, added)
}

func TestGetForUpdateHoldsTicketUntilTxEnds(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tickets := store.Tickets()
	tx := store.Transactor()
	require.NoError(t, tickets.Create(ctx, &domain.Ticket{ID: "t1", Reference: "TCK-1", Status: domain.TicketStatusNew}))

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := tickets.GetForUpdate(ctx, "t1")
			close(locked)
			<-release
			return err
		})
	}()
	<-locked

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := tickets.GetForUpdate(ctx, "t1")
			acquired.Store(true)
			return err
		})
	}()

	assert.Never(t, acquired.Load, 50*time.Millisecond, 5*time.Millisecond)
	_, err := tickets.GetByID(ctx, "t1")
	require.NoError(t, err, "plain reads are not blocked")

	close(release)
	<-done
	assert.True(t, acquired.Load())
}

func TestGetForUpdateIsReentrantWithinTx(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tickets := store.Tickets()
	require.NoError(t, tickets.Create(ctx, &domain.Ticket{ID: "t1", Reference: "TCK-1", Status: domain.TicketStatusNew}))

	err := store.Transactor().WithinTx(ctx, func(ctx context.Context) error {
		if _, err := tickets.GetForUpdate(ctx, "t1"); err != nil {
			return err
		}
		return store.Transactor().WithinTx(ctx, func(ctx context.Context) error {
			_, err := tickets.GetForUpdate(ctx, "t1")
			return err
		})
	})
	require.NoError(t, err)
}

func TestMarkReleasedOncePerOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tickets := store.Tickets()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, tickets.Create(ctx, &domain.Ticket{ID: "t1", Reference: "TCK-1", Status: domain.TicketStatusNew}))
	_, err := tickets.ClaimOwner(ctx, "t1", "a1", now)
	require.NoError(t, err)

	ok, err := tickets.MarkReleased(ctx, "t1", "a2", now)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner releases")
	ok, err = tickets.MarkReleased(ctx, "t1", "a1", now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tickets.MarkReleased(ctx, "t1", "a1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := tickets.GetByID(ctx, "t1")
	require.NoError(t, err)
	stored.OwnerReleasedAt = nil
	require.NoError(t, tickets.Update(ctx, stored))
	stored, err = tickets.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.NotNil(t, stored.OwnerReleasedAt, "Update does not clear the release")

	ok, err = tickets.ClearReleased(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tickets.MarkReleased(ctx, "t1", "a1", now)
	require.NoError(t, err)
	assert.True(t, ok)
}
