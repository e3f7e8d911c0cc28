package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// TimelineService is the append-only activity log shared by every workflow.
type TimelineService struct {
	entries   repository.TimelineRepository
	tickets   repository.TicketRepository
	envelopes repository.EnvelopeRepository
	clock     Clock
}

// TimelineDependencies bundles repositories for the timeline.
type TimelineDependencies struct {
	TimelineRepo repository.TimelineRepository
	TicketRepo   repository.TicketRepository
	EnvelopeRepo repository.EnvelopeRepository
	Clock        Clock
}

// NewTimelineService constructs the service.
func NewTimelineService(deps TimelineDependencies) *TimelineService {
	return &TimelineService{
		entries:   deps.TimelineRepo,
		tickets:   deps.TicketRepo,
		envelopes: deps.EnvelopeRepo,
		clock:     deps.Clock,
	}
}

// Append stamps id and time on entry and stores it.
func (s *TimelineService) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	if !entry.Visibility.Valid() {
		return apperrors.NewValidationError("invalid visibility", map[string]any{"visibility": entry.Visibility})
	}
	if entry.Visibility == domain.VisibilityEnvelopeOnly && entry.EnvelopeID == nil {
		return apperrors.NewValidationError("envelope_only entries need an envelope", nil)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.now()
	}
	if entry.AuthorType == "" {
		entry.AuthorType = domain.AuthorTypeSystem
	}
	return s.entries.Append(ctx, entry)
}

// system records an internal, system-authored entry.
func (s *TimelineService) system(ctx context.Context, ticketID string, entryType domain.TimelineEntryType, subject, content string) error {
	return s.Append(ctx, &domain.TimelineEntry{
		TicketID:   ticketID,
		Type:       entryType,
		Visibility: domain.VisibilityInternal,
		AuthorType: domain.AuthorTypeSystem,
		Subject:    subject,
		Content:    content,
	})
}

// Timeline returns the entries agentID may read. With envelopeID set, the
// envelope_only entries are narrowed to that envelope.
func (s *TimelineService) Timeline(ctx context.Context, ticketID, agentID string, envelopeID *string) ([]domain.TimelineEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", ticketID)
	}
	envs, err := s.envelopes.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	viewer := domain.Viewer{
		Kind:              domain.ViewerAgent,
		AgentID:           agentID,
		IsOwner:           ticket.IsOwnedBy(agentID),
		AssignedEnvelopes: make(map[string]bool),
		ViewingEnvelopeID: envelopeID,
	}
	for i := range envs {
		if envs[i].IsAssignedTo(agentID) {
			viewer.AssignedEnvelopes[envs[i].ID] = true
		}
	}
	return s.visible(ctx, ticketID, viewer)
}

// CustomerView returns the public entries of a ticket to its requester.
func (s *TimelineService) CustomerView(ctx context.Context, ticketID, contactID string) ([]domain.TimelineEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", ticketID)
	}
	if ticket.RequesterID != contactID {
		return nil, apperrors.NewNotAuthorized("view ticket", map[string]any{"ticket_id": ticketID})
	}
	return s.visible(ctx, ticketID, domain.Viewer{Kind: domain.ViewerCustomer})
}

func (s *TimelineService) visible(ctx context.Context, ticketID string, viewer domain.Viewer) ([]domain.TimelineEntry, error) {
	all, err := s.entries.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TimelineEntry, 0, len(all))
	for _, entry := range all {
		if viewer.CanView(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}
