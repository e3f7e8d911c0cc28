package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

func amount(v float64) *float64 { return &v }

func (f *fixture) resolve(ticketID, agentID string, value *float64) *domain.Resolution {
	f.t.Helper()
	res, err := f.resolutions.CreateResolution(f.ctx, CreateResolutionInput{
		TicketID:          ticketID,
		AgentID:           agentID,
		WhatWentWrong:     "Shipment arrived broken",
		WhyEligible:       "Within warranty",
		ResolutionType:    domain.ResolutionTypeRefund,
		ResolutionDetails: "Refund to card",
		Amount:            value,
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) calibrationItems(resolutionID string) []domain.CalibrationItem {
	f.t.Helper()
	all, err := f.store.Calibrations().List(f.ctx, repository.CalibrationFilter{})
	require.NoError(f.t, err)
	var out []domain.CalibrationItem
	for _, item := range all {
		if item.ResolutionID == resolutionID {
			out = append(out, item)
		}
	}
	return out
}

func TestDetermineTier(t *testing.T) {
	f := newFixture(t)
	agent := f.agent("agent-1")

	cases := []struct {
		amount *float64
		want   domain.EmpowermentTier
	}{
		{nil, domain.EmpowermentTierAgent},
		{amount(0), domain.EmpowermentTierAgent},
		{amount(100), domain.EmpowermentTierAgent},
		{amount(100.01), domain.EmpowermentTierTeamLead},
		{amount(500), domain.EmpowermentTierTeamLead},
		{amount(500.01), domain.EmpowermentTierManager},
	}
	for _, tc := range cases {
		tier, err := f.resolutions.DetermineTier(f.ctx, agent, tc.amount)
		require.NoError(t, err)
		assert.Equal(t, tc.want, tier)
	}

	agent.EmpowermentLimit = 25
	tier, err := f.resolutions.DetermineTier(f.ctx, agent, amount(30))
	require.NoError(t, err)
	assert.Equal(t, domain.EmpowermentTierTeamLead, tier, "personal limit below team tier1")

	teamless := f.addAgent("floater", domain.AgentRoleAgent)
	tier, err = f.resolutions.DetermineTier(f.ctx, teamless, amount(450))
	require.NoError(t, err)
	assert.Equal(t, domain.EmpowermentTierTeamLead, tier)
}

func TestCreateResolutionTiers(t *testing.T) {
	f := newFixture(t)

	selfApproved := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(90))
	assert.Equal(t, domain.EmpowermentTierAgent, selfApproved.EmpowermentTier)
	assert.Equal(t, domain.ApprovalStatusApproved, selfApproved.ApprovalStatus)
	assert.Equal(t, "agent-1", *selfApproved.ApprovedBy)
	assert.Equal(t, domain.CalibrationStatusNotRequired, selfApproved.CalibrationStatus)
	assert.Equal(t, domain.DefaultCurrency, selfApproved.Currency)
	assert.Empty(t, f.calibrationItems(selfApproved.ID))

	lead := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(300))
	assert.Equal(t, domain.EmpowermentTierTeamLead, lead.EmpowermentTier)
	assert.Equal(t, domain.ApprovalStatusPending, lead.ApprovalStatus)
	assert.Nil(t, lead.ApprovedBy)

	manager := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(600))
	assert.Equal(t, domain.EmpowermentTierManager, manager.EmpowermentTier)
	assert.Equal(t, domain.CalibrationStatusPending, manager.CalibrationStatus)
	items := f.calibrationItems(manager.ID)
	require.Len(t, items, 1)
	assert.Equal(t, domain.CalibrationReasonTier3, items[0].Reason)

	requests := f.notifier.byKind("approval_requested")
	require.Len(t, requests, 2)
	assert.Equal(t, lead.ID, requests[0].resolution)
	assert.Equal(t, []string{"lead-1"}, requests[0].recipients)
	assert.Equal(t, manager.ID, requests[1].resolution)
	assert.Equal(t, []string{"mgr-1"}, requests[1].recipients)
}

func TestCreateResolutionRules(t *testing.T) {
	f := newFixture(t)
	ticket := f.ownedTicket(domain.TicketPriorityMedium, "agent-1")

	_, err := f.resolutions.CreateResolution(f.ctx, CreateResolutionInput{
		TicketID: ticket.ID, AgentID: "agent-2", WhatWentWrong: "x", WhyEligible: "y", ResolutionType: domain.ResolutionTypeCredit,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	_, err = f.resolutions.CreateResolution(f.ctx, CreateResolutionInput{
		TicketID: ticket.ID, AgentID: "agent-1", ResolutionType: "bribe", Amount: amount(-1),
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Contains(t, domainErr.Details, "what_went_wrong")
	assert.Contains(t, domainErr.Details, "why_eligible")
	assert.Contains(t, domainErr.Details, "resolution_type")
	assert.Contains(t, domainErr.Details, "amount")
}

func TestFlaggedResolutionEntersCalibration(t *testing.T) {
	f := newFixture(t)
	ticket := f.ownedTicket(domain.TicketPriorityMedium, "agent-1")
	_, err := f.tickets.AddFlag(f.ctx, ticket.ID, "agent-1", domain.CaseFlagRepeatContact, "third time")
	require.NoError(t, err)
	_, err = f.tickets.AddFlag(f.ctx, ticket.ID, "agent-1", domain.CaseFlagSocialMedia, "tweeted")
	require.NoError(t, err)
	_, err = f.tickets.AddFlag(f.ctx, ticket.ID, "agent-1", domain.CaseFlagLegal, "lawyer")
	require.NoError(t, err)

	res := f.resolve(ticket.ID, "agent-1", amount(20))
	assert.Equal(t, domain.ApprovalStatusApproved, res.ApprovalStatus)
	assert.Equal(t, domain.CalibrationStatusPending, res.CalibrationStatus)

	items := f.calibrationItems(res.ID)
	require.Len(t, items, 1)
	assert.Equal(t, domain.CalibrationReason("flagged_social_media"), items[0].Reason)
}

func TestCalibrationUsesEarliestQualifyingFlag(t *testing.T) {
	f := newFixture(t)
	ticket := f.ownedTicket(domain.TicketPriorityMedium, "agent-1")
	_, err := f.tickets.AddFlag(f.ctx, ticket.ID, "agent-1", domain.CaseFlagLegal, "lawyer")
	require.NoError(t, err)
	_, err = f.tickets.AddFlag(f.ctx, ticket.ID, "agent-1", domain.CaseFlagPhysicalDamage, "dented")
	require.NoError(t, err)

	res := f.resolve(ticket.ID, "agent-1", amount(20))
	items := f.calibrationItems(res.ID)
	require.Len(t, items, 1)
	assert.Equal(t, domain.CalibrationReason("flagged_legal"), items[0].Reason)
}

func TestApproveResolution(t *testing.T) {
	f := newFixture(t)
	lead := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(300))
	manager := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(900))

	_, err := f.resolutions.ApproveResolution(f.ctx, lead.ID, "agent-2", true, "")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	_, err = f.resolutions.ApproveResolution(f.ctx, manager.ID, "lead-1", true, "")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	approved, err := f.resolutions.ApproveResolution(f.ctx, lead.ID, "lead-1", true, " fine ")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, approved.ApprovalStatus)
	assert.Equal(t, "lead-1", *approved.ApprovedBy)
	assert.Equal(t, "fine", approved.ApprovalNotes)

	_, err = f.resolutions.ApproveResolution(f.ctx, lead.ID, "mgr-1", false, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidResolutionState)

	rejected, err := f.resolutions.ApproveResolution(f.ctx, manager.ID, "mgr-1", false, "too generous")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusRejected, rejected.ApprovalStatus)
	assert.Equal(t, domain.CalibrationStatusRejected, rejected.CalibrationStatus)

	assert.Len(t, f.notifier.byKind("resolution_approved"), 1)
	rejections := f.notifier.byKind("resolution_rejected")
	require.Len(t, rejections, 1)
	assert.Equal(t, []string{"agent-1"}, rejections[0].recipients)
}

func TestCanApprove(t *testing.T) {
	res := &domain.Resolution{AgentID: "agent-1", EmpowermentTier: domain.EmpowermentTierTeamLead}
	managerTier := &domain.Resolution{AgentID: "agent-1", EmpowermentTier: domain.EmpowermentTierManager}

	cases := []struct {
		name     string
		approver domain.Agent
		res      *domain.Resolution
		want     bool
	}{
		{"team lead on team tier", domain.Agent{ID: "lead", Role: domain.AgentRoleTeamLead, IsActive: true}, res, true},
		{"team lead on manager tier", domain.Agent{ID: "lead", Role: domain.AgentRoleTeamLead, IsActive: true}, managerTier, false},
		{"manager on manager tier", domain.Agent{ID: "mgr", Role: domain.AgentRoleManager, IsActive: true}, managerTier, true},
		{"admin on team tier", domain.Agent{ID: "adm", Role: domain.AgentRoleAdmin, IsActive: true}, res, true},
		{"plain agent", domain.Agent{ID: "peer", Role: domain.AgentRoleAgent, IsActive: true}, res, false},
		{"inactive manager", domain.Agent{ID: "mgr", Role: domain.AgentRoleManager}, res, false},
		{"own resolution", domain.Agent{ID: "agent-1", Role: domain.AgentRoleManager, IsActive: true}, res, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, canApprove(&tc.approver, tc.res))
		})
	}
}

func TestPendingApprovals(t *testing.T) {
	f := newFixture(t)
	f.addAgent("agent-3", domain.AgentRoleAgent, "team-billing")

	lead := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(300))
	manager := f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-2").ID, "agent-2", amount(900))
	f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-3").ID, "agent-3", amount(300))
	f.resolve(f.ownedTicket(domain.TicketPriorityMedium, "agent-1").ID, "agent-1", amount(10))

	forLead, err := f.resolutions.PendingApprovals(f.ctx, "lead-1")
	require.NoError(t, err)
	require.Len(t, forLead, 1)
	assert.Equal(t, lead.ID, forLead[0].ID)

	forManager, err := f.resolutions.PendingApprovals(f.ctx, "mgr-1")
	require.NoError(t, err)
	require.Len(t, forManager, 1)
	assert.Equal(t, manager.ID, forManager[0].ID)

	_, err = f.resolutions.PendingApprovals(f.ctx, "agent-2")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
}
