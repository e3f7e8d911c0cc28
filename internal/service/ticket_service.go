package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ownerdesk/ticket-engine/internal/config"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/events"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

const ticketReferencePrefix = "TCK"

// TicketService coordinates the ticket lifecycle around the ownership guard.
type TicketService struct {
	tickets   repository.TicketRepository
	customers repository.CustomerRepository
	teams     repository.TeamRepository
	flags     repository.CaseFlagRepository
	tx        repository.Transactor
	ownership *OwnershipService
	timeline  *TimelineService
	matrix    config.AlertMatrix
	events    publisher
	clock     Clock
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	TeamRepo     repository.TeamRepository
	CaseFlagRepo repository.CaseFlagRepository
	Transactor   repository.Transactor
	Ownership    *OwnershipService
	Timeline     *TimelineService
	Matrix       config.AlertMatrix
	Dispatcher   events.Dispatcher
	Clock        Clock
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Subject     string
	Description string
	Type        domain.TicketType
	Priority    domain.TicketPriority
	RequesterID string
	CompanyID   *string
	TeamID      *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	matrix := deps.Matrix
	if matrix == nil {
		matrix = config.DefaultAlertMatrix()
	}
	return &TicketService{
		tickets:   deps.TicketRepo,
		customers: deps.CustomerRepo,
		teams:     deps.TeamRepo,
		flags:     deps.CaseFlagRepo,
		tx:        deps.Transactor,
		ownership: deps.Ownership,
		timeline:  deps.Timeline,
		matrix:    matrix,
		events:    publisher{dispatcher: deps.Dispatcher, clock: deps.Clock},
		clock:     deps.Clock,
	}
}

// CreateTicket opens an unowned ticket for a contact. The SLA due time comes
// from the priority's configured due hours.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if input.Type == "" {
		input.Type = domain.TicketTypeRequest
	}

	contact, err := s.customers.GetContact(ctx, input.RequesterID)
	if err != nil {
		return nil, notFound(err, "contact", input.RequesterID)
	}
	companyID := input.CompanyID
	if companyID == nil {
		companyID = contact.CompanyID
	}
	if input.TeamID != nil {
		team, err := s.teams.GetByID(ctx, *input.TeamID)
		if err != nil {
			return nil, notFound(err, "team", *input.TeamID)
		}
		if !team.IsActive {
			return nil, apperrors.NewValidationError("team inactive", map[string]any{"team_id": team.ID})
		}
	}

	now := s.clock.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Reference:   generateTicketReference(now),
		Subject:     subject,
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		Priority:    input.Priority,
		Status:      domain.TicketStatusNew,
		RequesterID: contact.ID,
		CompanyID:   companyID,
		TeamID:      input.TeamID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cfg, ok := s.matrix[ticket.Priority]; ok && cfg.DueTimeHours > 0 {
		due := now.Add(time.Duration(cfg.DueTimeHours) * time.Hour)
		ticket.SLABreachAt = &due
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.timeline.Append(ctx, &domain.TimelineEntry{
		TicketID:   ticket.ID,
		Type:       domain.TimelineEmailInbound,
		Visibility: domain.VisibilityPublic,
		AuthorID:   strPtr(contact.ID),
		AuthorType: domain.AuthorTypeCustomer,
		Subject:    ticket.Subject,
		Content:    ticket.Description,
	}); err != nil {
		return nil, err
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: domain.AuthorTypeCustomer},
		Payload: events.TicketCreatedPayload{
			Reference: ticket.Reference,
			TeamID:    ticket.TeamID,
			Priority:  ticket.Priority,
			Subject:   ticket.Subject,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", ticketID)
	}
	return ticket, nil
}

// ChangeStatus moves the ticket through the status state machine. Only the
// owner may do so. Reopening a released ticket gives the owner the slot back.
func (s *TicketService) ChangeStatus(ctx context.Context, ticketID, agentID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}

	var ticket *domain.Ticket
	var previous domain.TicketStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if err := s.ownership.RequireOwner(ctx, ticket, agentID, "change ticket status"); err != nil {
			return err
		}
		previous = ticket.Status
		if !previous.CanTransitionTo(next) {
			return apperrors.NewInvalidStatusTransition(string(previous), string(next))
		}

		now := s.clock.now()
		ticket.Status = next
		ticket.UpdatedAt = now
		switch next {
		case domain.TicketStatusResolved:
			ticket.ResolvedAt = &now
		case domain.TicketStatusClosed:
			ticket.ClosedAt = &now
		case domain.TicketStatusInProgress:
			if previous == domain.TicketStatusResolved {
				ticket.ResolvedAt = nil
				if err := s.ownership.reclaimCapacity(ctx, ticket); err != nil {
					return err
				}
			}
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.timeline.Append(ctx, &domain.TimelineEntry{
			TicketID:   ticket.ID,
			Type:       domain.TimelineStatusChange,
			Visibility: domain.VisibilityInternal,
			AuthorID:   strPtr(agentID),
			AuthorType: domain.AuthorTypeAgent,
			Subject:    "Status changed",
			Content:    fmt.Sprintf("%s → %s", previous, next),
		})
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    agentActor(agentID),
		Payload:  events.TicketStatusChangedPayload{OldStatus: previous, NewStatus: next},
	})
	return ticket, nil
}

// AddReply records an outbound public reply from the owner. The first reply
// stamps FirstResponseAt.
func (s *TicketService) AddReply(ctx context.Context, ticketID, agentID, subject, body string) (*domain.TimelineEntry, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("reply body is required", nil)
	}

	var entry *domain.TimelineEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if err := s.ownership.RequireOwner(ctx, ticket, agentID, "reply to customer"); err != nil {
			return err
		}
		if !ticket.Status.IsOpen() {
			return apperrors.NewValidationError("ticket is not open", map[string]any{"status": ticket.Status})
		}
		if strings.TrimSpace(subject) == "" {
			subject = "Re: " + ticket.Subject
		}

		entry = &domain.TimelineEntry{
			TicketID:   ticket.ID,
			Type:       domain.TimelineEmailOutbound,
			Visibility: domain.VisibilityPublic,
			AuthorID:   strPtr(agentID),
			AuthorType: domain.AuthorTypeAgent,
			Subject:    subject,
			Content:    body,
		}
		if err := s.timeline.Append(ctx, entry); err != nil {
			return err
		}
		if ticket.FirstResponseAt == nil {
			ticket.FirstResponseAt = &entry.CreatedAt
		}
		ticket.UpdatedAt = entry.CreatedAt
		return s.tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AddFlag marks the ticket for special handling.
func (s *TicketService) AddFlag(ctx context.Context, ticketID, agentID string, flagType domain.CaseFlagType, reason string) (*domain.CaseFlag, error) {
	if !flagType.Valid() {
		return nil, apperrors.NewValidationError("unknown flag type", map[string]any{"type": flagType})
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	flag := &domain.CaseFlag{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		Type:      flagType,
		Reason:    strings.TrimSpace(reason),
		AddedBy:   agentID,
		CreatedAt: s.clock.now(),
	}
	if err := s.flags.Create(ctx, flag); err != nil {
		return nil, err
	}
	if err := s.timeline.Append(ctx, &domain.TimelineEntry{
		TicketID:   ticket.ID,
		Type:       domain.TimelineNote,
		Visibility: domain.VisibilityInternal,
		AuthorID:   strPtr(agentID),
		AuthorType: domain.AuthorTypeAgent,
		Subject:    "Flag added",
		Content:    fmt.Sprintf("%s: %s", flagType, flag.Reason),
	}); err != nil {
		return nil, err
	}
	return flag, nil
}

// ClearFlag deactivates a flag on the ticket.
func (s *TicketService) ClearFlag(ctx context.Context, ticketID, flagID, agentID string) error {
	flag, err := s.flags.GetByID(ctx, flagID)
	if err != nil {
		return notFound(err, "case flag", flagID)
	}
	if flag.TicketID != ticketID {
		return apperrors.NewNotFound("case flag", map[string]any{"id": flagID, "ticket_id": ticketID})
	}
	if err := s.flags.Clear(ctx, flagID, agentID, s.clock.now()); err != nil {
		return notFound(err, "case flag", flagID)
	}
	return s.timeline.Append(ctx, &domain.TimelineEntry{
		TicketID:   ticketID,
		Type:       domain.TimelineNote,
		Visibility: domain.VisibilityInternal,
		AuthorID:   strPtr(agentID),
		AuthorType: domain.AuthorTypeAgent,
		Subject:    "Flag cleared",
		Content:    string(flag.Type),
	})
}

// ActiveFlags lists the uncleared flags on a ticket.
func (s *TicketService) ActiveFlags(ctx context.Context, ticketID string) ([]domain.CaseFlag, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.flags.ListActive(ctx, ticketID)
}

func generateTicketReference(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("%s-%s-%s", ticketReferencePrefix, at.UTC().Format("20060102"), suffix)
}
