package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
)

// Names of the score multipliers reported in a breakdown.
const (
	MultiplierSLAProximity      = "sla_proximity"
	MultiplierVIPCustomer       = "vip_customer"
	MultiplierEscalationPending = "escalation_pending"
	MultiplierStaleness         = "staleness"
	MultiplierCaseFlags         = "case_flags"
	MultiplierCustomerWaiting   = "customer_waiting"
)

const (
	needsAttentionScore   = 80.0
	defaultWorkQueueLimit = 50
	defaultTeamQueueLimit = 100
)

var basePriorityScore = map[domain.TicketPriority]float64{
	domain.TicketPriorityCritical: 100,
	domain.TicketPriorityHigh:     70,
	domain.TicketPriorityMedium:   40,
	domain.TicketPriorityLow:      10,
}

// PriorityScore is the auditable breakdown of a ticket's live urgency.
// Multipliers only holds factors above 1.0.
type PriorityScore struct {
	TicketID     string             `json:"ticket_id"`
	Base         float64            `json:"base"`
	Multipliers  map[string]float64 `json:"multipliers"`
	Score        float64            `json:"score"`
	CalculatedAt time.Time          `json:"calculated_at"`
}

// ScoredTicket pairs a ticket with its score.
type ScoredTicket struct {
	Ticket domain.Ticket `json:"ticket"`
	Score  PriorityScore `json:"score"`
}

// WorkQueue is an owner's open tickets ordered by score and bucketed.
type WorkQueue struct {
	AgentID         string         `json:"agent_id"`
	NeedsAttention  []ScoredTicket `json:"needs_attention"`
	WaitingOnOthers []ScoredTicket `json:"waiting_on_others"`
	OnTrack         []ScoredTicket `json:"on_track"`
	Total           int            `json:"total"`
}

// PriorityService scores tickets and builds work queues.
type PriorityService struct {
	tickets   repository.TicketRepository
	envelopes repository.EnvelopeRepository
	customers repository.CustomerRepository
	caseFlags repository.CaseFlagRepository
	teams     repository.TeamRepository
	clock     Clock
}

// PriorityDependencies bundles read-only collaborators for scoring.
type PriorityDependencies struct {
	TicketRepo   repository.TicketRepository
	EnvelopeRepo repository.EnvelopeRepository
	CustomerRepo repository.CustomerRepository
	CaseFlagRepo repository.CaseFlagRepository
	TeamRepo     repository.TeamRepository
	Clock        Clock
}

// NewPriorityService constructs the service.
func NewPriorityService(deps PriorityDependencies) *PriorityService {
	return &PriorityService{
		tickets:   deps.TicketRepo,
		envelopes: deps.EnvelopeRepo,
		customers: deps.CustomerRepo,
		caseFlags: deps.CaseFlagRepo,
		teams:     deps.TeamRepo,
		clock:     deps.Clock,
	}
}

// CalculateScore computes BASE[priority] times every multiplier above 1.0.
func (s *PriorityService) CalculateScore(ctx context.Context, ticket *domain.Ticket) (*PriorityScore, error) {
	now := s.clock.now()
	result := &PriorityScore{
		TicketID:     ticket.ID,
		Base:         basePriorityScore[ticket.Priority],
		Multipliers:  map[string]float64{},
		CalculatedAt: now,
	}

	tier, err := s.customerMultiplier(ctx, ticket)
	if err != nil {
		return nil, err
	}
	escalation, err := s.escalationMultiplier(ctx, ticket)
	if err != nil {
		return nil, err
	}
	flags, err := s.flagMultiplier(ctx, ticket)
	if err != nil {
		return nil, err
	}

	factors := []struct {
		name  string
		value float64
	}{
		{MultiplierSLAProximity, slaMultiplier(ticket, now)},
		{MultiplierVIPCustomer, tier},
		{MultiplierEscalationPending, escalation},
		{MultiplierStaleness, stalenessMultiplier(ticket, now)},
		{MultiplierCaseFlags, flags},
		{MultiplierCustomerWaiting, waitingMultiplier(ticket, now)},
	}

	score := result.Base
	for _, f := range factors {
		if f.value > 1.0 {
			result.Multipliers[f.name] = f.value
			score *= f.value
		}
	}
	result.Score = round2(score)
	return result, nil
}

func slaMultiplier(ticket *domain.Ticket, now time.Time) float64 {
	if ticket.SLABreachAt == nil {
		return 1.0
	}
	remaining := ticket.SLABreachAt.Sub(now)
	switch {
	case remaining < 0:
		return 3.0
	case remaining < time.Hour:
		return 2.5
	case remaining < 4*time.Hour:
		return 2.0
	case remaining < 12*time.Hour:
		return 1.7
	case remaining < 24*time.Hour:
		return 1.3
	}
	return 1.0
}

func tierMultiplier(tier domain.CustomerTier) float64 {
	switch tier {
	case domain.CustomerTierVIP:
		return 1.5
	case domain.CustomerTierPremium:
		return 1.2
	}
	return 1.0
}

// customerMultiplier uses the requester's tier when it is above standard and
// otherwise the tier of the ticket's company. Unknown contacts or companies
// count as standard.
func (s *PriorityService) customerMultiplier(ctx context.Context, ticket *domain.Ticket) (float64, error) {
	if ticket.RequesterID != "" {
		contact, err := s.customers.GetContact(ctx, ticket.RequesterID)
		switch {
		case err == nil:
			if m := tierMultiplier(contact.Tier); m > 1.0 {
				return m, nil
			}
		case !errors.Is(err, pgx.ErrNoRows):
			return 0, err
		}
	}

	if ticket.CompanyID != nil {
		company, err := s.customers.GetCompany(ctx, *ticket.CompanyID)
		switch {
		case err == nil:
			return tierMultiplier(company.Tier), nil
		case !errors.Is(err, pgx.ErrNoRows):
			return 0, err
		}
	}
	return 1.0, nil
}

func (s *PriorityService) escalationMultiplier(ctx context.Context, ticket *domain.Ticket) (float64, error) {
	envs, err := s.envelopes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return 0, err
	}
	for i := range envs {
		if envs[i].Status.IsLive() {
			return 1.3, nil
		}
	}
	return 1.0, nil
}

func stalenessMultiplier(ticket *domain.Ticket, now time.Time) float64 {
	// whole days only; 3.9 days is still 3
	days := int(now.Sub(ticket.UpdatedAt) / (24 * time.Hour))
	switch {
	case days > 14:
		return 1.4
	case days > 7:
		return 1.3
	case days > 3:
		return 1.2
	}
	return 1.0
}

func (s *PriorityService) flagMultiplier(ctx context.Context, ticket *domain.Ticket) (float64, error) {
	flags, err := s.caseFlags.ListActive(ctx, ticket.ID)
	if err != nil {
		return 0, err
	}
	best := 1.0
	for _, flag := range flags {
		var m float64
		switch flag.Type {
		case domain.CaseFlagSocialMedia, domain.CaseFlagLegal:
			m = 1.5
		case domain.CaseFlagRepeatContact:
			m = 1.3
		default:
			continue
		}
		if m > best {
			best = m
		}
	}
	return best, nil
}

// waitingMultiplier applies while the owner is working the ticket and the
// customer has not had a first response.
func waitingMultiplier(ticket *domain.Ticket, now time.Time) float64 {
	if ticket.Status != domain.TicketStatusInProgress || ticket.FirstResponseAt != nil {
		return 1.0
	}
	hours := now.Sub(ticket.CreatedAt).Hours()
	switch {
	case hours > 4:
		return 1.4
	case hours > 2:
		return 1.2
	}
	return 1.0
}

// WorkQueue scores the agent's open tickets and buckets the top limit of them.
func (s *PriorityService) WorkQueue(ctx context.Context, agentID string, limit int) (*WorkQueue, error) {
	if limit <= 0 {
		limit = defaultWorkQueueLimit
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		OwnerID:  &agentID,
		Statuses: domain.OpenTicketStatuses(),
	})
	if err != nil {
		return nil, err
	}
	scored, err := s.scoreAll(ctx, tickets)
	if err != nil {
		return nil, err
	}

	queue := &WorkQueue{
		AgentID:         agentID,
		NeedsAttention:  []ScoredTicket{},
		WaitingOnOthers: []ScoredTicket{},
		OnTrack:         []ScoredTicket{},
		Total:           len(scored),
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	for _, item := range scored {
		_, slaActive := item.Score.Multipliers[MultiplierSLAProximity]
		switch {
		case item.Score.Score >= needsAttentionScore || slaActive || item.Ticket.Status == domain.TicketStatusWaitingCustomer:
			queue.NeedsAttention = append(queue.NeedsAttention, item)
		case item.Ticket.Status == domain.TicketStatusWaitingInternal:
			queue.WaitingOnOthers = append(queue.WaitingOnOthers, item)
		default:
			queue.OnTrack = append(queue.OnTrack, item)
		}
	}
	return queue, nil
}

// TeamQueue scores the open tickets routed to a team.
func (s *PriorityService) TeamQueue(ctx context.Context, teamID string, limit int) ([]ScoredTicket, error) {
	if limit <= 0 {
		limit = defaultTeamQueueLimit
	}
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, notFound(err, "team", teamID)
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		TeamID:   &teamID,
		Statuses: domain.OpenTicketStatuses(),
	})
	if err != nil {
		return nil, err
	}
	scored, err := s.scoreAll(ctx, tickets)
	if err != nil {
		return nil, err
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// scoreAll returns tickets sorted by descending score; ties keep input order.
func (s *PriorityService) scoreAll(ctx context.Context, tickets []domain.Ticket) ([]ScoredTicket, error) {
	scored := make([]ScoredTicket, 0, len(tickets))
	for i := range tickets {
		score, err := s.CalculateScore(ctx, &tickets[i])
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredTicket{Ticket: tickets[i], Score: *score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.Score > scored[j].Score.Score
	})
	return scored, nil
}
