package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/events"
	"github.com/ownerdesk/ticket-engine/internal/observability"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// OwnershipService is the only writer of a ticket's owner.
type OwnershipService struct {
	tickets   repository.TicketRepository
	agents    repository.AgentRepository
	envelopes repository.EnvelopeRepository
	tx        repository.Transactor
	timeline  *TimelineService
	events    publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	clock     Clock
}

// OwnershipDependencies bundles collaborators for the ownership guard.
type OwnershipDependencies struct {
	TicketRepo   repository.TicketRepository
	AgentRepo    repository.AgentRepository
	EnvelopeRepo repository.EnvelopeRepository
	Transactor   repository.Transactor
	Timeline     *TimelineService
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        Clock
}

// TransferInput describes an emergency ownership transfer.
type TransferInput struct {
	TicketID     string
	NewOwnerID   string
	Reason       string
	AuthorizedBy string
	TransferType domain.TransferType
}

// NewOwnershipService constructs the service.
func NewOwnershipService(deps OwnershipDependencies) *OwnershipService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OwnershipService{
		tickets:   deps.TicketRepo,
		agents:    deps.AgentRepo,
		envelopes: deps.EnvelopeRepo,
		tx:        deps.Transactor,
		timeline:  deps.Timeline,
		events:    publisher{dispatcher: deps.Dispatcher, clock: deps.Clock},
		metrics:   deps.Metrics,
		logger:    logger,
		clock:     deps.Clock,
	}
}

// AcceptTicket makes agentID the permanent owner of an unowned ticket.
func (s *OwnershipService) AcceptTicket(ctx context.Context, ticketID, agentID string) (*domain.Ticket, error) {
	var accepted *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if ticket.OwnerID != nil {
			return apperrors.NewAlreadyOwned(ticket.ID, ticket.OwnerID)
		}
		agent, err := s.agents.GetByID(ctx, agentID)
		if err != nil {
			return notFound(err, "agent", agentID)
		}
		if !agent.IsActive {
			return apperrors.NewAgentInactive(agent.ID)
		}
		if !agent.HasCapacity() {
			return apperrors.NewAgentAtCapacity(agent.ID, agent.CurrentTickets, agent.MaxTickets)
		}

		reserved, err := s.agents.ReserveCapacity(ctx, agent.ID)
		if err != nil {
			return err
		}
		if !reserved {
			return apperrors.NewAgentAtCapacity(agent.ID, agent.MaxTickets, agent.MaxTickets)
		}

		now := s.clock.now()
		claimed, err := s.tickets.ClaimOwner(ctx, ticket.ID, agent.ID, now)
		if err != nil || !claimed {
			s.releaseCapacity(ctx, agent.ID)
		}
		if err != nil {
			return err
		}
		if !claimed {
			s.metrics.AcceptConflict("ticket")
			current, getErr := s.tickets.GetByID(ctx, ticket.ID)
			if getErr != nil {
				return apperrors.NewAlreadyOwned(ticket.ID, nil)
			}
			return apperrors.NewAlreadyOwned(ticket.ID, current.OwnerID)
		}

		ticket.OwnerID = &agent.ID
		ticket.OwnerAcceptedAt = &now
		if ticket.Status == domain.TicketStatusNew {
			ticket.Status = domain.TicketStatusInProgress
		}
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := s.timeline.system(ctx, ticket.ID, domain.TimelineSystem,
			"Ticket accepted",
			fmt.Sprintf("%s accepted ownership of %s", agent.Name, ticket.Reference)); err != nil {
			return err
		}
		accepted = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TicketAccepted()
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketAccepted,
		TicketID: accepted.ID,
		Actor:    agentActor(agentID),
		Payload:  events.TicketAcceptedPayload{OwnerID: agentID, AcceptedAt: *accepted.OwnerAcceptedAt},
	})
	return accepted, nil
}

func (s *OwnershipService) releaseCapacity(ctx context.Context, agentID string) {
	if err := s.agents.AdjustTicketCount(ctx, agentID, -1); err != nil {
		s.logger.Error("release reserved capacity", zap.String("agent_id", agentID), zap.Error(err))
	}
}

// ValidateOwnership reports whether agentID owns the ticket.
func (s *OwnershipService) ValidateOwnership(ctx context.Context, ticketID, agentID string) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, notFound(err, "ticket", ticketID)
	}
	return ticket.IsOwnedBy(agentID), nil
}

// TransferOwnership is the only path that overwrites an existing owner.
// Callers must have checked that AuthorizedBy holds a manager role.
func (s *OwnershipService) TransferOwnership(ctx context.Context, input TransferInput) (*domain.Ticket, error) {
	if !input.TransferType.Valid() {
		return nil, apperrors.NewInvalidTransferReason(string(input.TransferType))
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("transfer reason is required", nil)
	}

	var transferred *domain.Ticket
	var oldOwner string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, input.TicketID)
		if err != nil {
			return notFound(err, "ticket", input.TicketID)
		}
		if ticket.OwnerID == nil {
			return apperrors.NewNotOwned(ticket.ID)
		}
		oldOwner = *ticket.OwnerID
		if oldOwner == input.NewOwnerID {
			return apperrors.NewValidationError("new owner already owns the ticket", map[string]any{"agent_id": input.NewOwnerID})
		}
		newOwner, err := s.agents.GetByID(ctx, input.NewOwnerID)
		if err != nil {
			return notFound(err, "agent", input.NewOwnerID)
		}
		if !newOwner.IsActive {
			return apperrors.NewAgentInactive(newOwner.ID)
		}

		now := s.clock.now()
		swapped, err := s.tickets.TransferOwner(ctx, ticket.ID, oldOwner, newOwner.ID, now)
		if err != nil {
			return err
		}
		if !swapped {
			return apperrors.NewConflict("ticket owner changed during transfer", map[string]any{"ticket_id": ticket.ID})
		}
		// A released slot stays released; the new owner inherits no load.
		if ticket.OwnerReleasedAt == nil {
			if err := s.agents.AdjustTicketCount(ctx, oldOwner, -1); err != nil {
				return err
			}
			if err := s.agents.AdjustTicketCount(ctx, newOwner.ID, 1); err != nil {
				return err
			}
		}

		content := fmt.Sprintf("Ownership transferred from %s to %s (%s) by %s. Reason: %s",
			oldOwner, newOwner.ID, input.TransferType, input.AuthorizedBy, reason)
		if err := s.timeline.Append(ctx, &domain.TimelineEntry{
			TicketID:   ticket.ID,
			Type:       domain.TimelineSystem,
			Visibility: domain.VisibilityInternal,
			AuthorID:   strPtr(input.AuthorizedBy),
			AuthorType: domain.AuthorTypeAgent,
			Subject:    "Emergency ownership transfer",
			Content:    content,
		}); err != nil {
			return err
		}

		transferred, err = s.tickets.GetByID(ctx, ticket.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("ticket ownership transferred",
		zap.String("ticket_id", transferred.ID),
		zap.String("old_owner", oldOwner),
		zap.String("new_owner", input.NewOwnerID),
		zap.String("transfer_type", string(input.TransferType)),
		zap.String("authorized_by", input.AuthorizedBy))
	s.events.publish(ctx, events.Event{
		Type:       events.EventTicketTransferred,
		TicketID:   transferred.ID,
		Actor:      agentActor(input.AuthorizedBy),
		Recipients: []string{oldOwner, input.NewOwnerID},
		Payload: events.TicketTransferredPayload{
			OldOwnerID:   oldOwner,
			NewOwnerID:   input.NewOwnerID,
			TransferType: string(input.TransferType),
			Reason:       reason,
			AuthorizedBy: input.AuthorizedBy,
		},
	})
	return transferred, nil
}

// ReleaseOwnership frees the owner's capacity once the ticket is done. The
// owner id stays on the ticket and the slot is released at most once until
// the ticket is reopened.
func (s *OwnershipService) ReleaseOwnership(ctx context.Context, ticketID, agentID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if !ticket.IsOwnedBy(agentID) {
			return apperrors.NewNotOwner(ticket.ID, agentID)
		}
		if ticket.Status.IsOpen() {
			return apperrors.NewTicketStillActive(ticket.ID, string(ticket.Status))
		}
		released, err := s.tickets.MarkReleased(ctx, ticket.ID, agentID, s.clock.now())
		if err != nil {
			return err
		}
		if !released {
			return apperrors.NewConflict("ownership capacity already released", map[string]any{"ticket_id": ticket.ID})
		}
		if err := s.agents.AdjustTicketCount(ctx, agentID, -1); err != nil {
			return err
		}
		return s.timeline.system(ctx, ticket.ID, domain.TimelineSystem, "Ownership released",
			fmt.Sprintf("%s released ticket capacity", agentID))
	})
}

// reclaimCapacity takes the owner's slot back when a released ticket is
// reopened. The owner keeps the ticket even above MaxTickets.
func (s *OwnershipService) reclaimCapacity(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.OwnerID == nil || ticket.OwnerReleasedAt == nil {
		return nil
	}
	cleared, err := s.tickets.ClearReleased(ctx, ticket.ID)
	if err != nil || !cleared {
		return err
	}
	ticket.OwnerReleasedAt = nil
	return s.agents.AdjustTicketCount(ctx, *ticket.OwnerID, 1)
}

// RequireOwner fails with NotAuthorized naming action unless agentID owns ticket.
func (s *OwnershipService) RequireOwner(_ context.Context, ticket *domain.Ticket, agentID, action string) error {
	if ticket.IsOwnedBy(agentID) {
		return nil
	}
	return apperrors.NewNotAuthorized(action, map[string]any{"ticket_id": ticket.ID, "agent_id": agentID})
}

// RequireOwnerOrExpert also admits the agent assigned to an accepted envelope
// on the ticket; envelopeID narrows the check to one envelope.
func (s *OwnershipService) RequireOwnerOrExpert(ctx context.Context, ticket *domain.Ticket, agentID string, envelopeID *string, action string) error {
	if ticket.IsOwnedBy(agentID) {
		return nil
	}
	denied := apperrors.NewNotAuthorized(action, map[string]any{"ticket_id": ticket.ID, "agent_id": agentID})

	if envelopeID != nil {
		env, err := s.envelopes.GetByID(ctx, *envelopeID)
		if err != nil {
			return notFound(err, "envelope", *envelopeID)
		}
		if env.TicketID != ticket.ID || !env.IsAssignedTo(agentID) {
			return denied
		}
		return nil
	}

	expert, err := s.isActiveExpert(ctx, ticket.ID, agentID)
	if err != nil {
		return err
	}
	if !expert {
		return denied
	}
	return nil
}

// isActiveExpert reports whether agentID holds an active envelope on the ticket.
func (s *OwnershipService) isActiveExpert(ctx context.Context, ticketID, agentID string) (bool, error) {
	envs, err := s.envelopes.ListByTicket(ctx, ticketID)
	if err != nil {
		return false, err
	}
	for i := range envs {
		if envs[i].Status == domain.EnvelopeStatusActive && envs[i].IsAssignedTo(agentID) {
			return true, nil
		}
	}
	return false, nil
}
