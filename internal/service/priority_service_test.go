package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

func TestCalculateScore(t *testing.T) {
	f := newFixture(t)
	now := fixtureStart
	in := func(d time.Duration) *time.Time {
		at := now.Add(d)
		return &at
	}

	cases := []struct {
		name        string
		ticket      domain.Ticket
		flags       []domain.CaseFlagType
		want        float64
		multipliers map[string]float64
	}{
		{
			name:        "critical without multipliers",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityCritical, Status: domain.TicketStatusNew, RequesterID: "contact-std", CreatedAt: now, UpdatedAt: now},
			want:        100,
			multipliers: map[string]float64{},
		},
		{
			name:   "medium near sla for vip",
			ticket: domain.Ticket{Priority: domain.TicketPriorityMedium, Status: domain.TicketStatusNew, RequesterID: "contact-vip", SLABreachAt: in(3 * time.Hour), CreatedAt: now, UpdatedAt: now},
			want:   120,
			multipliers: map[string]float64{
				MultiplierSLAProximity: 2.0,
				MultiplierVIPCustomer:  1.5,
			},
		},
		{
			name:        "breached sla",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityLow, Status: domain.TicketStatusNew, RequesterID: "contact-std", SLABreachAt: in(-time.Minute), CreatedAt: now, UpdatedAt: now},
			want:        30,
			multipliers: map[string]float64{MultiplierSLAProximity: 3.0},
		},
		{
			name:        "premium requester wins over vip company",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityLow, Status: domain.TicketStatusNew, RequesterID: "contact-premium", CompanyID: strPtr("company-vip"), CreatedAt: now, UpdatedAt: now},
			want:        12,
			multipliers: map[string]float64{MultiplierVIPCustomer: 1.2},
		},
		{
			name:        "standard requester falls back to ticket company",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityLow, Status: domain.TicketStatusNew, RequesterID: "contact-std", CompanyID: strPtr("company-vip"), CreatedAt: now, UpdatedAt: now},
			want:        15,
			multipliers: map[string]float64{MultiplierVIPCustomer: 1.5},
		},
		{
			name:        "stale three and a half days counts as three",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityLow, Status: domain.TicketStatusNew, RequesterID: "contact-std", CreatedAt: now.Add(-5 * 24 * time.Hour), UpdatedAt: now.Add(-84 * time.Hour)},
			want:        10,
			multipliers: map[string]float64{},
		},
		{
			name:        "stale four days",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityLow, Status: domain.TicketStatusNew, RequesterID: "contact-std", CreatedAt: now.Add(-5 * 24 * time.Hour), UpdatedAt: now.Add(-4 * 24 * time.Hour)},
			want:        12,
			multipliers: map[string]float64{MultiplierStaleness: 1.2},
		},
		{
			name:        "unknown requester counts as standard",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityLow, Status: domain.TicketStatusNew, RequesterID: "ghost", CreatedAt: now, UpdatedAt: now},
			want:        10,
			multipliers: map[string]float64{},
		},
		{
			name:        "strongest flag wins",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusNew, RequesterID: "contact-std", CreatedAt: now, UpdatedAt: now},
			flags:       []domain.CaseFlagType{domain.CaseFlagRepeatContact, domain.CaseFlagLegal, domain.CaseFlagVIP},
			want:        105,
			multipliers: map[string]float64{MultiplierCaseFlags: 1.5},
		},
		{
			name:        "stale for eight days",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityLow, Status: domain.TicketStatusNew, RequesterID: "contact-std", CreatedAt: now.Add(-10 * 24 * time.Hour), UpdatedAt: now.Add(-8 * 24 * time.Hour)},
			want:        13,
			multipliers: map[string]float64{MultiplierStaleness: 1.3},
		},
		{
			name:        "customer waiting for first response",
			ticket:      domain.Ticket{Priority: domain.TicketPriorityMedium, Status: domain.TicketStatusInProgress, RequesterID: "contact-std", CreatedAt: now.Add(-3 * time.Hour), UpdatedAt: now},
			want:        48,
			multipliers: map[string]float64{MultiplierCustomerWaiting: 1.2},
		},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := tc.ticket
			ticket.ID = "score-" + string(rune('a'+i))
			for j, flagType := range tc.flags {
				require.NoError(t, f.store.CaseFlags().Create(f.ctx, &domain.CaseFlag{
					ID:       ticket.ID + "-flag-" + string(rune('a'+j)),
					TicketID: ticket.ID,
					Type:     flagType,
				}))
			}

			score, err := f.priority.CalculateScore(f.ctx, &ticket)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, score.Score, 0.001)
			assert.Equal(t, tc.multipliers, score.Multipliers)
			assert.Equal(t, now, score.CalculatedAt)
		})
	}
}

func TestScoreCountsLiveEnvelopes(t *testing.T) {
	f := newFixture(t)
	ticket := f.ownedTicket(domain.TicketPriorityLow, "agent-1")
	f.teamEnvelope(ticket.ID, "agent-1", "team-billing")

	score, err := f.priority.CalculateScore(f.ctx, f.ticket(ticket.ID))
	require.NoError(t, err)
	assert.Equal(t, 1.3, score.Multipliers[MultiplierEscalationPending])
	assert.InDelta(t, 13, score.Score, 0.001)
}

func TestWorkQueueBuckets(t *testing.T) {
	f := newFixture(t)

	onTrack := f.ownedTicket(domain.TicketPriorityLow, "agent-1")

	waiting := f.ownedTicket(domain.TicketPriorityLow, "agent-1")
	f.teamEnvelope(waiting.ID, "agent-1", "team-billing")

	urgent := f.ownedTicket(domain.TicketPriorityCritical, "agent-1")

	customer := f.ownedTicket(domain.TicketPriorityLow, "agent-1")
	_, err := f.tickets.ChangeStatus(f.ctx, customer.ID, "agent-1", domain.TicketStatusWaitingCustomer)
	require.NoError(t, err)

	done := f.ownedTicket(domain.TicketPriorityCritical, "agent-1")
	_, err = f.tickets.ChangeStatus(f.ctx, done.ID, "agent-1", domain.TicketStatusResolved)
	require.NoError(t, err)

	f.ownedTicket(domain.TicketPriorityCritical, "agent-2")

	queue, err := f.priority.WorkQueue(f.ctx, "agent-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, queue.Total)

	ids := func(items []ScoredTicket) []string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.Ticket.ID)
		}
		return out
	}
	assert.Equal(t, []string{urgent.ID, customer.ID}, ids(queue.NeedsAttention))
	assert.Equal(t, []string{waiting.ID}, ids(queue.WaitingOnOthers))
	assert.Equal(t, []string{onTrack.ID}, ids(queue.OnTrack))

	limited, err := f.priority.WorkQueue(f.ctx, "agent-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 4, limited.Total)
	assert.Equal(t, []string{urgent.ID}, ids(limited.NeedsAttention))
	assert.Equal(t, []string{waiting.ID}, ids(limited.WaitingOnOthers))
	assert.Empty(t, limited.OnTrack)
}

func TestTeamQueue(t *testing.T) {
	f := newFixture(t)
	low := f.newTicket(domain.TicketPriorityLow, "contact-std")
	high := f.newTicket(domain.TicketPriorityHigh, "contact-std")

	queue, err := f.priority.TeamQueue(f.ctx, "team-support", 0)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, high.ID, queue[0].Ticket.ID)
	assert.Equal(t, low.ID, queue[1].Ticket.ID)

	_, err = f.priority.TeamQueue(f.ctx, "team-none", 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
