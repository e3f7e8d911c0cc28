package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		allowed  bool
	}{
		{TicketStatusNew, TicketStatusInProgress, true},
		{TicketStatusNew, TicketStatusResolved, false},
		{TicketStatusInProgress, TicketStatusWaitingInternal, true},
		{TicketStatusWaitingInternal, TicketStatusWaitingInternal, true},
		{TicketStatusWaitingInternal, TicketStatusInProgress, true},
		{TicketStatusInProgress, TicketStatusWaitingCustomer, true},
		{TicketStatusWaitingCustomer, TicketStatusInProgress, true},
		{TicketStatusInProgress, TicketStatusResolved, true},
		{TicketStatusResolved, TicketStatusClosed, true},
		{TicketStatusResolved, TicketStatusInProgress, true},
		{TicketStatusClosed, TicketStatusInProgress, false},
		{TicketStatusInProgress, TicketStatusNew, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEnvelopeStatusIsMonotonic(t *testing.T) {
	all := []EnvelopeStatus{EnvelopeStatusPending, EnvelopeStatusActive, EnvelopeStatusCompleted}
	for _, from := range all {
		for _, to := range all {
			want := (from == EnvelopeStatusPending && to == EnvelopeStatusActive) ||
				(from == EnvelopeStatusActive && to == EnvelopeStatusCompleted)
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestViewerCanView(t *testing.T) {
	env1, env2 := "env-1", "env-2"
	public := TimelineEntry{Visibility: VisibilityPublic}
	internal := TimelineEntry{Visibility: VisibilityInternal}
	scoped := TimelineEntry{Visibility: VisibilityEnvelopeOnly, EnvelopeID: &env1}
	unscoped := TimelineEntry{Visibility: VisibilityEnvelopeOnly}

	customer := Viewer{Kind: ViewerCustomer}
	assert.True(t, customer.CanView(public))
	assert.False(t, customer.CanView(internal))
	assert.False(t, customer.CanView(scoped))

	bystander := Viewer{Kind: ViewerAgent, AgentID: "a-9"}
	assert.True(t, bystander.CanView(internal))
	assert.False(t, bystander.CanView(scoped))

	owner := Viewer{Kind: ViewerAgent, AgentID: "a-1", IsOwner: true}
	assert.True(t, owner.CanView(scoped))
	assert.False(t, owner.CanView(unscoped))

	expert := Viewer{Kind: ViewerAgent, AgentID: "a-2", AssignedEnvelopes: map[string]bool{env1: true}}
	assert.True(t, expert.CanView(scoped))

	owner.ViewingEnvelopeID = &env2
	assert.False(t, owner.CanView(scoped))
	assert.True(t, owner.CanView(internal))

	assert.False(t, owner.CanView(TimelineEntry{Visibility: "secret"}))
}

func TestAlertRuleThreshold(t *testing.T) {
	assert.Equal(t, "15m0s", AlertRule{TimeValue: 15, TimeUnit: TimeUnitMinutes}.Threshold().String())
	assert.Equal(t, "10h0m0s", AlertRule{TimeValue: 10, TimeUnit: TimeUnitHours}.Threshold().String())
}
