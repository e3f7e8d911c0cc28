package memory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
)

type envelopeRepo struct{ s *Store }

func (r envelopeRepo) Create(_ context.Context, envelope *domain.Envelope) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *envelope
	stored.AssignedTo = nil
	stored.AcceptedAt = nil
	r.s.envelopes[envelope.ID] = stored
	r.s.envelopeOrder = append(r.s.envelopeOrder, envelope.ID)
	return nil
}

func (r envelopeRepo) GetByID(_ context.Context, id string) (*domain.Envelope, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	env, ok := r.s.envelopes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &env, nil
}

func (r envelopeRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Envelope, error) {
	return r.filter(func(e domain.Envelope) bool { return e.TicketID == ticketID }), nil
}

func (r envelopeRepo) ListAssignedTo(_ context.Context, agentID string) ([]domain.Envelope, error) {
	return r.filter(func(e domain.Envelope) bool { return e.IsAssignedTo(agentID) }), nil
}

func (r envelopeRepo) ListPending(_ context.Context, filter repository.PendingEnvelopeFilter) ([]domain.Envelope, error) {
	return r.filter(func(e domain.Envelope) bool {
		if e.Status != domain.EnvelopeStatusPending || e.AssignedTo != nil {
			return false
		}
		if e.TeamID != nil && contains(filter.TeamIDs, *e.TeamID) {
			return true
		}
		return e.TargetAgentID != nil && filter.TargetAgentID != nil && *e.TargetAgentID == *filter.TargetAgentID
	}), nil
}

func (r envelopeRepo) Claim(_ context.Context, envelopeID, agentID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	env, ok := r.s.envelopes[envelopeID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if env.Status != domain.EnvelopeStatusPending || env.AssignedTo != nil {
		return false, nil
	}
	assignee := agentID
	env.Status = domain.EnvelopeStatusActive
	env.AssignedTo = &assignee
	env.AcceptedAt = &at
	r.s.envelopes[envelopeID] = env
	return true, nil
}

func (r envelopeRepo) Complete(_ context.Context, envelopeID, summary string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	env, ok := r.s.envelopes[envelopeID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if env.Status != domain.EnvelopeStatusActive {
		return false, nil
	}
	env.Status = domain.EnvelopeStatusCompleted
	env.Summary = &summary
	env.CompletedAt = &at
	r.s.envelopes[envelopeID] = env
	return true, nil
}

func (r envelopeRepo) filter(keep func(domain.Envelope) bool) []domain.Envelope {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Envelope
	for _, id := range r.s.envelopeOrder {
		if env := r.s.envelopes[id]; keep(env) {
			result = append(result, env)
		}
	}
	return result
}
