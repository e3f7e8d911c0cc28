package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ownerdesk/ticket-engine/internal/config"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/events"
	"github.com/ownerdesk/ticket-engine/internal/lock"
	"github.com/ownerdesk/ticket-engine/internal/repository/memory"
)

// Monday morning, inside default business hours.
var fixtureStart = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notification struct {
	kind       string
	recipients []string
	ticketID   string
	envelopeID string
	resolution string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) record(call notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
}

func (n *recordingNotifier) byKind(kind string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, c := range n.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (n *recordingNotifier) SendAlert(_ context.Context, recipientID string, ticket *domain.Ticket, _ *domain.Alert) {
	n.record(notification{kind: "alert", recipients: []string{recipientID}, ticketID: ticket.ID})
}

func (n *recordingNotifier) NotifyEnvelopeCreated(_ context.Context, env *domain.Envelope, recipients []string) {
	n.record(notification{kind: "envelope_created", recipients: recipients, ticketID: env.TicketID, envelopeID: env.ID})
}

func (n *recordingNotifier) NotifyEnvelopeAccepted(_ context.Context, env *domain.Envelope) {
	n.record(notification{kind: "envelope_accepted", recipients: []string{env.RequestedBy}, ticketID: env.TicketID, envelopeID: env.ID})
}

func (n *recordingNotifier) NotifyEnvelopeUpdate(_ context.Context, env *domain.Envelope, _, recipientID, _ string) {
	n.record(notification{kind: "envelope_update", recipients: []string{recipientID}, ticketID: env.TicketID, envelopeID: env.ID})
}

func (n *recordingNotifier) NotifyEnvelopeCompleted(_ context.Context, env *domain.Envelope, _ string, recipients []string) {
	n.record(notification{kind: "envelope_completed", recipients: recipients, ticketID: env.TicketID, envelopeID: env.ID})
}

func (n *recordingNotifier) RequestApproval(_ context.Context, res *domain.Resolution, approvers []string) {
	n.record(notification{kind: "approval_requested", recipients: approvers, ticketID: res.TicketID, resolution: res.ID})
}

func (n *recordingNotifier) NotifyResolutionApproved(_ context.Context, res *domain.Resolution, _ string) {
	n.record(notification{kind: "resolution_approved", recipients: []string{res.AgentID}, ticketID: res.TicketID, resolution: res.ID})
}

func (n *recordingNotifier) NotifyResolutionRejected(_ context.Context, res *domain.Resolution, _, _ string) {
	n.record(notification{kind: "resolution_rejected", recipients: []string{res.AgentID}, ticketID: res.TicketID, resolution: res.ID})
}

func (n *recordingNotifier) RequestCoaching(_ context.Context, res *domain.Resolution, _ string, recipients []string) {
	n.record(notification{kind: "coaching", recipients: recipients, ticketID: res.TicketID, resolution: res.ID})
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	clock    *testClock
	notifier *recordingNotifier
	events   events.Dispatcher

	timeline    *TimelineService
	ownership   *OwnershipService
	tickets     *TicketService
	envelopes   *EnvelopeService
	priority    *PriorityService
	alerts      *AlertService
	resolutions *ResolutionService
	calibration *CalibrationService
	directory   *DirectoryService
}

// newFixture wires every service over one in-memory store and seeds:
//
//	team-support  (tiers 100/500, supervisor lead-1, manager mgr-1)
//	team-billing  (no supervisor, no manager)
//	agent-1, agent-2 in team-support; expert-1, expert-2 in team-billing
//	lead-1 (team_lead), mgr-1 (manager), admin-1 (admin)
//	contact-std (standard), contact-vip (vip), contact-premium at company-vip
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: fixtureStart}
	notifier := &recordingNotifier{}
	dispatcher := events.NewInMemoryDispatcher(nil)
	now := Clock(clock.Now)

	f := &fixture{t: t, ctx: context.Background(), store: store, clock: clock, notifier: notifier, events: dispatcher}

	f.timeline = NewTimelineService(TimelineDependencies{
		TimelineRepo: store.Timeline(),
		TicketRepo:   store.Tickets(),
		EnvelopeRepo: store.Envelopes(),
		Clock:        now,
	})
	f.ownership = NewOwnershipService(OwnershipDependencies{
		TicketRepo:   store.Tickets(),
		AgentRepo:    store.Agents(),
		EnvelopeRepo: store.Envelopes(),
		Transactor:   store.Transactor(),
		Timeline:     f.timeline,
		Dispatcher:   dispatcher,
		Clock:        now,
	})
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:   store.Tickets(),
		CustomerRepo: store.Customers(),
		TeamRepo:     store.Teams(),
		CaseFlagRepo: store.CaseFlags(),
		Transactor:   store.Transactor(),
		Ownership:    f.ownership,
		Timeline:     f.timeline,
		Dispatcher:   dispatcher,
		Clock:        now,
	})
	f.envelopes = NewEnvelopeService(EnvelopeDependencies{
		TicketRepo:   store.Tickets(),
		EnvelopeRepo: store.Envelopes(),
		AgentRepo:    store.Agents(),
		TeamRepo:     store.Teams(),
		Transactor:   store.Transactor(),
		Ownership:    f.ownership,
		Timeline:     f.timeline,
		Notifier:     notifier,
		Clock:        now,
	})
	f.priority = NewPriorityService(PriorityDependencies{
		TicketRepo:   store.Tickets(),
		EnvelopeRepo: store.Envelopes(),
		CustomerRepo: store.Customers(),
		CaseFlagRepo: store.CaseFlags(),
		TeamRepo:     store.Teams(),
		Clock:        now,
	})
	groupManagers := NewTeamGroupManagers(store.Teams(), []string{"mgr-fallback"})
	f.alerts = NewAlertService(AlertDependencies{
		TicketRepo:    store.Tickets(),
		AgentRepo:     store.Agents(),
		TeamRepo:      store.Teams(),
		AlertRepo:     store.Alerts(),
		Matrix:        config.DefaultAlertMatrix(),
		GroupManagers: groupManagers,
		Notifier:      notifier,
		Locker:        lock.NewMemoryLocker(),
		Concurrency:   4,
		Clock:         now,
	})
	f.resolutions = NewResolutionService(ResolutionDependencies{
		TicketRepo:      store.Tickets(),
		AgentRepo:       store.Agents(),
		TeamRepo:        store.Teams(),
		ResolutionRepo:  store.Resolutions(),
		CalibrationRepo: store.Calibrations(),
		CaseFlagRepo:    store.CaseFlags(),
		Transactor:      store.Transactor(),
		Timeline:        f.timeline,
		GroupManagers:   groupManagers,
		Notifier:        notifier,
		Clock:           now,
	})
	f.calibration = NewCalibrationService(CalibrationDependencies{
		ResolutionRepo:  store.Resolutions(),
		CalibrationRepo: store.Calibrations(),
		AgentRepo:       store.Agents(),
		TeamRepo:        store.Teams(),
		Notifier:        notifier,
		Clock:           now,
		Random:          func() float64 { return 0.99 },
	})
	f.directory = NewDirectoryService(DirectoryDependencies{
		TeamRepo:     store.Teams(),
		AgentRepo:    store.Agents(),
		CustomerRepo: store.Customers(),
		BcryptCost:   4,
	})

	f.seed()
	return f
}

func (f *fixture) seed() {
	ctx := f.ctx
	teams := []domain.Team{
		{ID: "team-support", Name: "Support", Tier1Limit: 100, Tier2Limit: 500, SupervisorID: strPtr("lead-1"), ManagerID: strPtr("mgr-1"), IsActive: true},
		{ID: "team-billing", Name: "Billing", Tier1Limit: 100, Tier2Limit: 500, IsActive: true},
	}
	for i := range teams {
		require.NoError(f.t, f.store.Teams().Create(ctx, &teams[i]))
	}
	f.addAgent("agent-1", domain.AgentRoleAgent, "team-support")
	f.addAgent("agent-2", domain.AgentRoleAgent, "team-support")
	f.addAgent("expert-1", domain.AgentRoleAgent, "team-billing")
	f.addAgent("expert-2", domain.AgentRoleAgent, "team-billing")
	f.addAgent("lead-1", domain.AgentRoleTeamLead, "team-support")
	f.addAgent("mgr-1", domain.AgentRoleManager)
	f.addAgent("admin-1", domain.AgentRoleAdmin)

	require.NoError(f.t, f.store.Customers().CreateCompany(ctx, &domain.Company{ID: "company-vip", Name: "Acme", Tier: domain.CustomerTierVIP}))
	contacts := []domain.Contact{
		{ID: "contact-std", Name: "Sam", Email: "sam@example.com", Tier: domain.CustomerTierStandard},
		{ID: "contact-vip", Name: "Val", Email: "val@example.com", Tier: domain.CustomerTierVIP},
		{ID: "contact-premium", Name: "Pia", Email: "pia@example.com", Tier: domain.CustomerTierPremium, CompanyID: strPtr("company-vip")},
	}
	for i := range contacts {
		require.NoError(f.t, f.store.Customers().CreateContact(ctx, &contacts[i]))
	}
}

func (f *fixture) addAgent(id string, role domain.AgentRole, teamIDs ...string) *domain.Agent {
	f.t.Helper()
	agent := &domain.Agent{
		ID:               id,
		Name:             "Agent " + id,
		Email:            id + "@example.com",
		Role:             role,
		TeamIDs:          teamIDs,
		MaxTickets:       domain.DefaultMaxTickets,
		EmpowermentLimit: domain.DefaultEmpowermentLimit,
		IsActive:         true,
	}
	require.NoError(f.t, f.store.Agents().Create(f.ctx, agent))
	return agent
}

func (f *fixture) agent(id string) *domain.Agent {
	f.t.Helper()
	agent, err := f.store.Agents().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return agent
}

func (f *fixture) ticket(id string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.store.Tickets().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return ticket
}

// newTicket opens a ticket through the ticket service.
func (f *fixture) newTicket(priority domain.TicketPriority, requester string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.tickets.CreateTicket(f.ctx, CreateTicketInput{
		Subject:     "Printer on fire",
		Description: "It is really on fire.",
		Priority:    priority,
		RequesterID: requester,
		TeamID:      strPtr("team-support"),
	})
	require.NoError(f.t, err)
	return ticket
}

// ownedTicket opens a ticket and has ownerID accept it.
func (f *fixture) ownedTicket(priority domain.TicketPriority, ownerID string) *domain.Ticket {
	f.t.Helper()
	ticket := f.newTicket(priority, "contact-std")
	accepted, err := f.ownership.AcceptTicket(f.ctx, ticket.ID, ownerID)
	require.NoError(f.t, err)
	return accepted
}

func (f *fixture) entries(ticketID string) []domain.TimelineEntry {
	f.t.Helper()
	all, err := f.store.Timeline().ListByTicket(f.ctx, ticketID)
	require.NoError(f.t, err)
	return all
}
