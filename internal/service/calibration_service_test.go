package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

func reasonsOf(items []domain.CalibrationItem) map[string]domain.CalibrationReason {
	out := make(map[string]domain.CalibrationReason, len(items))
	for _, item := range items {
		out[item.ResolutionID] = item.Reason
	}
	return out
}

func TestGenerateQueueAlwaysIncludesManagerTier(t *testing.T) {
	f := newFixture(t)
	small := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(50))
	big := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(800))

	from, to := fixtureStart.Add(-time.Hour), fixtureStart.Add(time.Hour)
	queue, err := f.calibration.GenerateQueue(f.ctx, from, to, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.CalibrationReason{big.ID: domain.CalibrationReasonTier3}, reasonsOf(queue))

	again, err := f.calibration.GenerateQueue(f.ctx, from, to, 0)
	require.NoError(t, err)
	assert.Len(t, again, 1, "regeneration does not duplicate items")

	stored, err := f.store.Resolutions().GetByID(f.ctx, small.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CalibrationStatusNotRequired, stored.CalibrationStatus)

	_, err = f.calibration.GenerateQueue(f.ctx, to, from, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGenerateQueueSamplesLowerTiers(t *testing.T) {
	f := newFixture(t)
	sampler := NewCalibrationService(CalibrationDependencies{
		ResolutionRepo:  f.store.Resolutions(),
		CalibrationRepo: f.store.Calibrations(),
		AgentRepo:       f.store.Agents(),
		TeamRepo:        f.store.Teams(),
		Notifier:        f.notifier,
		Clock:           f.clock.Now,
		Random:          func() float64 { return 0.01 },
	})

	small := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(50))
	rejected := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(200))
	_, err := f.resolutions.ApproveResolution(f.ctx, rejected.ID, "lead-1", false, "no")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	outside := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(50))

	queue, err := sampler.GenerateQueue(f.ctx, fixtureStart, fixtureStart.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.CalibrationReason{small.ID: domain.CalibrationReasonRandomSample}, reasonsOf(queue))

	stored, err := f.store.Resolutions().GetByID(f.ctx, small.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CalibrationStatusPending, stored.CalibrationStatus)
	assert.Empty(t, f.calibrationItems(outside.ID))

	// 0.01*100 is not below a 0.5% rate
	f.clock.Advance(time.Minute)
	late := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(50))
	_, err = sampler.GenerateQueue(f.ctx, fixtureStart.Add(2*time.Hour), fixtureStart.Add(3*time.Hour), 0.5)
	require.NoError(t, err)
	assert.Empty(t, f.calibrationItems(late.ID))
}

func TestReviewItem(t *testing.T) {
	f := newFixture(t)
	res := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(700))
	items := f.calibrationItems(res.ID)
	require.Len(t, items, 1)

	_, err := f.calibration.ReviewItem(f.ctx, items[0].ID, "mgr-1", "meh", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.calibration.ReviewItem(f.ctx, "missing", "mgr-1", domain.CalibrationOutcomeUpheld, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	reviewed, err := f.calibration.ReviewItem(f.ctx, items[0].ID, "mgr-1", domain.CalibrationOutcomeCoachingNeeded, " talk to them ")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusReviewed, reviewed.ReviewStatus)
	assert.Equal(t, "talk to them", reviewed.ReviewerNotes)
	assert.Equal(t, fixtureStart, *reviewed.ReviewedAt)

	stored, err := f.store.Resolutions().GetByID(f.ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CalibrationStatusCoachingNeeded, stored.CalibrationStatus)

	coaching := f.notifier.byKind("coaching")
	require.Len(t, coaching, 1)
	assert.Equal(t, []string{"lead-1"}, coaching[0].recipients)

	_, err = f.calibration.ReviewItem(f.ctx, items[0].ID, "mgr-1", domain.CalibrationOutcomeUpheld, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCalibrationReport(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for _, value := range []float64{600, 700, 800} {
		res := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(value))
		ids = append(ids, f.calibrationItems(res.ID)[0].ID)
	}
	flagged := f.ownedTicket(domain.TicketPriorityMedium, "agent-2")
	_, err := f.tickets.AddFlag(f.ctx, flagged.ID, "agent-2", domain.CaseFlagPhysicalDamage, "dented")
	require.NoError(t, err)
	f.resolve(flagged.ID, "agent-2", amount(10))

	_, err = f.calibration.ReviewItem(f.ctx, ids[0], "mgr-1", domain.CalibrationOutcomeUpheld, "")
	require.NoError(t, err)
	_, err = f.calibration.ReviewItem(f.ctx, ids[1], "mgr-1", domain.CalibrationOutcomeRevised, "")
	require.NoError(t, err)

	report, err := f.calibration.Report(f.ctx, fixtureStart, fixtureStart.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ReasonStats{Total: 4, Reviewed: 2, Upheld: 1, Revised: 1, UpholdRate: 0.5}, report.Overall)
	assert.Equal(t, ReasonStats{Total: 3, Reviewed: 2, Upheld: 1, Revised: 1, UpholdRate: 0.5}, report.ByReason["tier3"])
	assert.Equal(t, ReasonStats{Total: 1}, report.ByReason["flagged_physical_damage"])

	empty, err := f.calibration.Report(f.ctx, fixtureStart.Add(48*time.Hour), fixtureStart.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.Overall.Total)
	assert.Empty(t, empty.ByReason)
}
