package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/observability"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// DefaultEnvelopeResponseHours is used when neither input nor config sets one.
const DefaultEnvelopeResponseHours = 4

// EnvelopeService runs the parallel-assist state machine.
type EnvelopeService struct {
	tickets       repository.TicketRepository
	envelopes     repository.EnvelopeRepository
	agents        repository.AgentRepository
	teams         repository.TeamRepository
	tx            repository.Transactor
	ownership     *OwnershipService
	timeline      *TimelineService
	notifier      Notifier
	metrics       *observability.Metrics
	logger        *zap.Logger
	clock         Clock
	responseHours int
}

// EnvelopeDependencies bundles collaborators for the envelope engine.
type EnvelopeDependencies struct {
	TicketRepo    repository.TicketRepository
	EnvelopeRepo  repository.EnvelopeRepository
	AgentRepo     repository.AgentRepository
	TeamRepo      repository.TeamRepository
	Transactor    repository.Transactor
	Ownership     *OwnershipService
	Timeline      *TimelineService
	Notifier      Notifier
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Clock         Clock
	ResponseHours int
}

// CreateEnvelopeInput routes a request for help to a team or a named agent.
type CreateEnvelopeInput struct {
	TicketID      string
	RequestedBy   string
	Reason        string
	TeamID        *string
	TargetAgentID *string
	ResponseHours int
}

// ExpertView is what a helping agent sees on a ticket.
type ExpertView struct {
	Ticket             domain.Ticket     `json:"ticket"`
	MyEnvelopes        []domain.Envelope `json:"my_envelopes"`
	AvailableEnvelopes []domain.Envelope `json:"available_envelopes"`
	CanAddEnvelope     bool              `json:"can_add_envelope"`
	IsOwner            bool              `json:"is_owner"`
}

// EnvelopeSummary is one row of the owner's envelope overview.
type EnvelopeSummary struct {
	ID            string                `json:"id"`
	Status        domain.EnvelopeStatus `json:"status"`
	Target        string                `json:"target"`
	Reason        string                `json:"reason"`
	RequestedBy   string                `json:"requested_by"`
	ResponseDueAt time.Time             `json:"response_due_at"`
	CreatedAt     time.Time             `json:"created_at"`
	AcceptedAt    *time.Time            `json:"accepted_at,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
	Summary       *string               `json:"summary,omitempty"`
}

// AgentInbox lists an agent's envelopes across tickets.
type AgentInbox struct {
	Assigned  []domain.Envelope `json:"assigned"`
	Available []domain.Envelope `json:"available"`
}

// NewEnvelopeService constructs the service.
func NewEnvelopeService(deps EnvelopeDependencies) *EnvelopeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hours := deps.ResponseHours
	if hours <= 0 {
		hours = DefaultEnvelopeResponseHours
	}
	return &EnvelopeService{
		tickets:       deps.TicketRepo,
		envelopes:     deps.EnvelopeRepo,
		agents:        deps.AgentRepo,
		teams:         deps.TeamRepo,
		tx:            deps.Transactor,
		ownership:     deps.Ownership,
		timeline:      deps.Timeline,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		logger:        logger,
		clock:         deps.Clock,
		responseHours: hours,
	}
}

// CreateEnvelope opens a pending envelope on an owned ticket. The requester
// must be the owner or the expert of an active envelope on the same ticket.
func (s *EnvelopeService) CreateEnvelope(ctx context.Context, input CreateEnvelopeInput) (*domain.Envelope, error) {
	hasTeam := input.TeamID != nil && *input.TeamID != ""
	hasAgent := input.TargetAgentID != nil && *input.TargetAgentID != ""
	if hasTeam == hasAgent {
		return nil, apperrors.NewValidationError("route the envelope to exactly one of team_id or agent_id", nil)
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required", nil)
	}
	hours := input.ResponseHours
	if hours <= 0 {
		hours = s.responseHours
	}

	var created *domain.Envelope
	var recipients []string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, input.TicketID)
		if err != nil {
			return notFound(err, "ticket", input.TicketID)
		}
		if !ticket.IsOwnedBy(input.RequestedBy) {
			expert, err := s.ownership.isActiveExpert(ctx, ticket.ID, input.RequestedBy)
			if err != nil {
				return err
			}
			if !expert {
				return apperrors.NewNotAuthorizedToEscalate(ticket.ID, input.RequestedBy)
			}
		}
		if ticket.Status != domain.TicketStatusWaitingInternal && !ticket.Status.CanTransitionTo(domain.TicketStatusWaitingInternal) {
			return apperrors.NewInvalidStatusTransition(string(ticket.Status), string(domain.TicketStatusWaitingInternal))
		}

		if hasTeam {
			team, err := s.teams.GetByID(ctx, *input.TeamID)
			if err != nil {
				return notFound(err, "team", *input.TeamID)
			}
			if !team.IsActive {
				return apperrors.NewValidationError("team is inactive", map[string]any{"team_id": team.ID})
			}
			members, err := s.agents.ListByTeam(ctx, team.ID)
			if err != nil {
				return err
			}
			for _, m := range members {
				if m.IsActive {
					recipients = append(recipients, m.ID)
				}
			}
			recipients = without(recipients, input.RequestedBy)
		} else {
			target, err := s.agents.GetByID(ctx, *input.TargetAgentID)
			if err != nil {
				return notFound(err, "agent", *input.TargetAgentID)
			}
			if !target.IsActive {
				return apperrors.NewAgentInactive(target.ID)
			}
			recipients = []string{target.ID}
		}

		now := s.clock.now()
		env := &domain.Envelope{
			ID:            uuid.NewString(),
			TicketID:      ticket.ID,
			RequestedBy:   input.RequestedBy,
			Status:        domain.EnvelopeStatusPending,
			Reason:        reason,
			ResponseDueAt: now.Add(time.Duration(hours) * time.Hour),
			CreatedAt:     now,
		}
		if hasTeam {
			env.TeamID = input.TeamID
		} else {
			env.TargetAgentID = input.TargetAgentID
		}
		if err := s.envelopes.Create(ctx, env); err != nil {
			return err
		}

		ticket.Status = domain.TicketStatusWaitingInternal
		ticket.HasActiveEnvelopes = true
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}

		if err := s.timeline.Append(ctx, &domain.TimelineEntry{
			TicketID:   ticket.ID,
			EnvelopeID: &env.ID,
			Type:       domain.TimelineEnvelopeCreated,
			Visibility: domain.VisibilityEnvelopeOnly,
			AuthorID:   strPtr(input.RequestedBy),
			AuthorType: domain.AuthorTypeAgent,
			Subject:    "Envelope opened",
			Content:    reason,
		}); err != nil {
			return err
		}
		created = env
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyEnvelopeCreated(ctx, created, recipients)
	return created, nil
}

// AcceptEnvelope claims a pending envelope. For team routing the first
// member to claim wins; everyone else gets AlreadyAccepted.
func (s *EnvelopeService) AcceptEnvelope(ctx context.Context, envelopeID, agentID string) (*domain.Envelope, error) {
	env, err := s.envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, notFound(err, "envelope", envelopeID)
	}
	switch env.Status {
	case domain.EnvelopeStatusPending:
	case domain.EnvelopeStatusActive:
		return nil, apperrors.NewAlreadyAccepted(env.ID)
	default:
		return nil, apperrors.NewInvalidEnvelopeState(env.ID, string(env.Status), string(domain.EnvelopeStatusPending))
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, notFound(err, "agent", agentID)
	}
	if !agent.IsActive {
		return nil, apperrors.NewAgentInactive(agent.ID)
	}
	if env.TeamID != nil {
		if !agent.InTeam(*env.TeamID) {
			return nil, apperrors.NewNotTeamMember(*env.TeamID, agent.ID)
		}
	} else if env.TargetAgentID == nil || *env.TargetAgentID != agent.ID {
		return nil, apperrors.NewNotAssignedAgent(env.ID, agent.ID)
	}

	now := s.clock.now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		claimed, err := s.envelopes.Claim(ctx, env.ID, agent.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			s.metrics.AcceptConflict("envelope")
			return apperrors.NewAlreadyAccepted(env.ID)
		}
		env.Status = domain.EnvelopeStatusActive
		env.AssignedTo = &agent.ID
		env.AcceptedAt = &now
		return s.timeline.Append(ctx, &domain.TimelineEntry{
			TicketID:   env.TicketID,
			EnvelopeID: &env.ID,
			Type:       domain.TimelineSystem,
			Visibility: domain.VisibilityEnvelopeOnly,
			AuthorID:   &agent.ID,
			AuthorType: domain.AuthorTypeAgent,
			Subject:    "Envelope accepted",
			Content:    fmt.Sprintf("%s accepted the envelope", agent.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyEnvelopeAccepted(ctx, env)
	return env, nil
}

// AddNote appends an envelope-scoped entry and notifies the other party.
func (s *EnvelopeService) AddNote(ctx context.Context, envelopeID, agentID, content string, visibility domain.Visibility) (*domain.TimelineEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	if visibility == "" {
		visibility = domain.VisibilityEnvelopeOnly
	}
	if visibility != domain.VisibilityEnvelopeOnly && visibility != domain.VisibilityInternal {
		return nil, apperrors.NewValidationError("envelope notes are internal or envelope_only", map[string]any{"visibility": visibility})
	}

	env, err := s.envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, notFound(err, "envelope", envelopeID)
	}
	ticket, err := s.tickets.GetByID(ctx, env.TicketID)
	if err != nil {
		return nil, notFound(err, "ticket", env.TicketID)
	}
	if err := s.ownership.RequireOwnerOrExpert(ctx, ticket, agentID, &env.ID, "add envelope note"); err != nil {
		return nil, err
	}
	isOwner := ticket.IsOwnedBy(agentID)

	entry := &domain.TimelineEntry{
		TicketID:   ticket.ID,
		EnvelopeID: &env.ID,
		Type:       domain.TimelineNote,
		Visibility: visibility,
		AuthorID:   &agentID,
		AuthorType: domain.AuthorTypeAgent,
		Content:    content,
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		return nil, err
	}

	var counterpart string
	if isOwner {
		if env.AssignedTo != nil {
			counterpart = *env.AssignedTo
		}
	} else {
		counterpart = *ticket.OwnerID
	}
	if counterpart != "" && counterpart != agentID {
		s.notifier.NotifyEnvelopeUpdate(ctx, env, agentID, counterpart, stringPreview(content, 140))
	}
	return entry, nil
}

// CompleteEnvelope closes an active envelope with a summary and reverts the
// ticket to in_progress when no live envelope remains.
func (s *EnvelopeService) CompleteEnvelope(ctx context.Context, envelopeID, completedBy, summary string) (*domain.Envelope, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, apperrors.NewValidationError("summary is required", nil)
	}

	env, err := s.envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, notFound(err, "envelope", envelopeID)
	}
	if env.Status != domain.EnvelopeStatusActive {
		return nil, apperrors.NewInvalidEnvelopeState(env.ID, string(env.Status), string(domain.EnvelopeStatusActive))
	}

	var ownerID string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, env.TicketID)
		if err != nil {
			return notFound(err, "ticket", env.TicketID)
		}
		if err := s.ownership.RequireOwnerOrExpert(ctx, ticket, completedBy, &env.ID, "complete envelope"); err != nil {
			return err
		}
		ownerID = *ticket.OwnerID

		now := s.clock.now()
		done, err := s.envelopes.Complete(ctx, env.ID, summary, now)
		if err != nil {
			return err
		}
		if !done {
			current, getErr := s.envelopes.GetByID(ctx, env.ID)
			status := domain.EnvelopeStatusCompleted
			if getErr == nil {
				status = current.Status
			}
			return apperrors.NewInvalidEnvelopeState(env.ID, string(status), string(domain.EnvelopeStatusActive))
		}
		env.Status = domain.EnvelopeStatusCompleted
		env.Summary = &summary
		env.CompletedAt = &now

		if err := s.timeline.Append(ctx, &domain.TimelineEntry{
			TicketID:   ticket.ID,
			Type:       domain.TimelineEnvelopeCompleted,
			Visibility: domain.VisibilityInternal,
			AuthorID:   strPtr(completedBy),
			AuthorType: domain.AuthorTypeAgent,
			Subject:    "Envelope completed",
			Content:    summary,
		}); err != nil {
			return err
		}

		return s.refreshEnvelopeFlag(ctx, ticket, now)
	})
	if err != nil {
		return nil, err
	}

	var expert string
	if env.AssignedTo != nil {
		expert = *env.AssignedTo
	}
	recipients := without(uniqueIDs(ownerID, env.RequestedBy, expert), completedBy)
	s.notifier.NotifyEnvelopeCompleted(ctx, env, completedBy, recipients)
	return env, nil
}

// refreshEnvelopeFlag re-derives HasActiveEnvelopes from the ticket's
// envelopes. The caller must hold the ticket row lock.
func (s *EnvelopeService) refreshEnvelopeFlag(ctx context.Context, ticket *domain.Ticket, now time.Time) error {
	envs, err := s.envelopes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	live := false
	for i := range envs {
		if envs[i].Status.IsLive() {
			live = true
			break
		}
	}
	ticket.HasActiveEnvelopes = live
	if !live && ticket.Status == domain.TicketStatusWaitingInternal {
		ticket.Status = domain.TicketStatusInProgress
	}
	ticket.UpdatedAt = now
	return s.tickets.Update(ctx, ticket)
}

// ExpertView shows agentID its envelopes on a ticket and the pending ones it
// could pick up.
func (s *EnvelopeService) ExpertView(ctx context.Context, agentID, ticketID string) (*ExpertView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", ticketID)
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, notFound(err, "agent", agentID)
	}
	envs, err := s.envelopes.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	view := &ExpertView{
		Ticket:             *ticket,
		MyEnvelopes:        []domain.Envelope{},
		AvailableEnvelopes: []domain.Envelope{},
		IsOwner:            ticket.IsOwnedBy(agentID),
	}
	hasActive := false
	for _, env := range envs {
		switch {
		case env.IsAssignedTo(agentID):
			view.MyEnvelopes = append(view.MyEnvelopes, env)
			if env.Status == domain.EnvelopeStatusActive {
				hasActive = true
			}
		case env.Status == domain.EnvelopeStatusPending && env.AssignedTo == nil &&
			((env.TeamID != nil && agent.InTeam(*env.TeamID)) ||
				(env.TargetAgentID != nil && *env.TargetAgentID == agentID)):
			view.AvailableEnvelopes = append(view.AvailableEnvelopes, env)
		}
	}
	view.CanAddEnvelope = view.IsOwner || hasActive
	return view, nil
}

// OwnerView lists every envelope on the ticket for its owner. Summaries are
// withheld until completion.
func (s *EnvelopeService) OwnerView(ctx context.Context, ownerID, ticketID string) ([]EnvelopeSummary, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", ticketID)
	}
	if !ticket.IsOwnedBy(ownerID) {
		return nil, apperrors.NewNotOwner(ticket.ID, ownerID)
	}
	envs, err := s.envelopes.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	out := make([]EnvelopeSummary, 0, len(envs))
	for _, env := range envs {
		row := EnvelopeSummary{
			ID:            env.ID,
			Status:        env.Status,
			Target:        s.targetName(ctx, env),
			Reason:        env.Reason,
			RequestedBy:   env.RequestedBy,
			ResponseDueAt: env.ResponseDueAt,
			CreatedAt:     env.CreatedAt,
			AcceptedAt:    env.AcceptedAt,
			CompletedAt:   env.CompletedAt,
		}
		if env.Status == domain.EnvelopeStatusCompleted {
			row.Summary = env.Summary
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *EnvelopeService) targetName(ctx context.Context, env domain.Envelope) string {
	agentName := func(id string) string {
		agent, err := s.agents.GetByID(ctx, id)
		if err != nil {
			return id
		}
		return agent.Name
	}
	switch {
	case env.AssignedTo != nil:
		return agentName(*env.AssignedTo)
	case env.TeamID != nil:
		team, err := s.teams.GetByID(ctx, *env.TeamID)
		if err != nil {
			return "Team: " + *env.TeamID
		}
		return "Team: " + team.Name
	case env.TargetAgentID != nil:
		return agentName(*env.TargetAgentID)
	default:
		return "Unassigned"
	}
}

// AgentEnvelopes is the cross-ticket envelope inbox of an agent.
func (s *EnvelopeService) AgentEnvelopes(ctx context.Context, agentID string) (*AgentInbox, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, notFound(err, "agent", agentID)
	}
	assigned, err := s.envelopes.ListAssignedTo(ctx, agent.ID)
	if err != nil {
		return nil, err
	}
	available, err := s.envelopes.ListPending(ctx, repository.PendingEnvelopeFilter{
		TeamIDs:       agent.TeamIDs,
		TargetAgentID: &agent.ID,
	})
	if err != nil {
		return nil, err
	}
	if assigned == nil {
		assigned = []domain.Envelope{}
	}
	if available == nil {
		available = []domain.Envelope{}
	}
	return &AgentInbox{Assigned: assigned, Available: available}, nil
}
