package memory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *ticket
	stored.OwnerID = nil
	stored.OwnerAcceptedAt = nil
	stored.OwnerReleasedAt = nil
	r.s.tickets[ticket.ID] = stored
	r.s.ticketOrder = append(r.s.ticketOrder, ticket.ID)
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := *ticket
	updated.OwnerID = current.OwnerID
	updated.OwnerAcceptedAt = current.OwnerAcceptedAt
	updated.OwnerReleasedAt = current.OwnerReleasedAt
	updated.Reference = current.Reference
	updated.RequesterID = current.RequesterID
	updated.CompanyID = current.CompanyID
	updated.CreatedAt = current.CreatedAt
	r.s.tickets[ticket.ID] = updated
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	r.s.lockRow(ctx, "ticket:"+id)
	return r.GetByID(ctx, id)
}

func (r ticketRepo) MarkReleased(_ context.Context, ticketID, ownerID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ticket.OwnerID == nil || *ticket.OwnerID != ownerID || ticket.OwnerReleasedAt != nil {
		return false, nil
	}
	ticket.OwnerReleasedAt = &at
	ticket.UpdatedAt = at
	r.s.tickets[ticketID] = ticket
	return true, nil
}

func (r ticketRepo) ClearReleased(_ context.Context, ticketID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ticket.OwnerReleasedAt == nil {
		return false, nil
	}
	ticket.OwnerReleasedAt = nil
	r.s.tickets[ticketID] = ticket
	return true, nil
}

func (r ticketRepo) ClaimOwner(_ context.Context, ticketID, agentID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ticket.OwnerID != nil {
		return false, nil
	}
	owner := agentID
	ticket.OwnerID = &owner
	ticket.OwnerAcceptedAt = &at
	ticket.UpdatedAt = at
	r.s.tickets[ticketID] = ticket
	return true, nil
}

func (r ticketRepo) TransferOwner(_ context.Context, ticketID, fromAgentID, toAgentID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ticket.OwnerID == nil || *ticket.OwnerID != fromAgentID {
		return false, nil
	}
	owner := toAgentID
	ticket.OwnerID = &owner
	ticket.OwnerAcceptedAt = &at
	ticket.UpdatedAt = at
	r.s.tickets[ticketID] = ticket
	return true, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Ticket
	skipped := 0
	for _, id := range r.s.ticketOrder {
		ticket := r.s.tickets[id]
		if filter.OwnerID != nil && (ticket.OwnerID == nil || *ticket.OwnerID != *filter.OwnerID) {
			continue
		}
		if filter.TeamID != nil && (ticket.TeamID == nil || *ticket.TeamID != *filter.TeamID) {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !hasPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, ticket)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func hasStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func hasPriority(list []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
