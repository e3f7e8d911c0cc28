package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// PendingEnvelopeFilter selects unaccepted envelopes routed to teams or an agent.
type PendingEnvelopeFilter struct {
	TeamIDs       []string
	TargetAgentID *string
}

// EnvelopeRepository persists envelopes. Claim and Complete are conditional
// updates; they report false when the expected state no longer holds.
type EnvelopeRepository interface {
	Create(ctx context.Context, envelope *domain.Envelope) error
	GetByID(ctx context.Context, id string) (*domain.Envelope, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Envelope, error)
	ListAssignedTo(ctx context.Context, agentID string) ([]domain.Envelope, error)
	ListPending(ctx context.Context, filter PendingEnvelopeFilter) ([]domain.Envelope, error)
	Claim(ctx context.Context, envelopeID, agentID string, at time.Time) (bool, error)
	Complete(ctx context.Context, envelopeID, summary string, at time.Time) (bool, error)
}

type envelopeRepository struct {
	pool *pgxpool.Pool
}

// NewEnvelopeRepository instantiates repository.
func NewEnvelopeRepository(pool *pgxpool.Pool) EnvelopeRepository {
	return &envelopeRepository{pool: pool}
}

const envelopeColumns = `id, ticket_id, requested_by, team_id, target_agent_id, assigned_to, status, reason, summary,
               response_due_at, created_at, accepted_at, completed_at`

func (r *envelopeRepository) Create(ctx context.Context, envelope *domain.Envelope) error {
	const query = `
        INSERT INTO envelopes (id, ticket_id, requested_by, team_id, target_agent_id, status, reason,
            response_due_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		envelope.ID,
		envelope.TicketID,
		envelope.RequestedBy,
		envelope.TeamID,
		envelope.TargetAgentID,
		envelope.Status,
		envelope.Reason,
		envelope.ResponseDueAt,
		envelope.CreatedAt,
	)
	return err
}

func (r *envelopeRepository) GetByID(ctx context.Context, id string) (*domain.Envelope, error) {
	envelopes, err := r.query(ctx, `SELECT `+envelopeColumns+` FROM envelopes WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(envelopes) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &envelopes[0], nil
}

func (r *envelopeRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Envelope, error) {
	return r.query(ctx, `SELECT `+envelopeColumns+` FROM envelopes WHERE ticket_id=$1 ORDER BY created_at ASC`, ticketID)
}

func (r *envelopeRepository) ListAssignedTo(ctx context.Context, agentID string) ([]domain.Envelope, error) {
	return r.query(ctx, `SELECT `+envelopeColumns+` FROM envelopes WHERE assigned_to=$1 ORDER BY created_at ASC`, agentID)
}

func (r *envelopeRepository) ListPending(ctx context.Context, filter PendingEnvelopeFilter) ([]domain.Envelope, error) {
	var routing []string
	args := []any{}
	if len(filter.TeamIDs) > 0 {
		args = append(args, filter.TeamIDs)
		routing = append(routing, fmt.Sprintf("team_id::text = ANY($%d)", len(args)))
	}
	if filter.TargetAgentID != nil {
		args = append(args, *filter.TargetAgentID)
		routing = append(routing, fmt.Sprintf("target_agent_id=$%d", len(args)))
	}
	if len(routing) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM envelopes WHERE status='pending' AND assigned_to IS NULL AND (%s) ORDER BY created_at ASC`,
		envelopeColumns, strings.Join(routing, " OR "))
	return r.query(ctx, query, args...)
}

// Claim moves pending->active only while nobody holds the envelope.
func (r *envelopeRepository) Claim(ctx context.Context, envelopeID, agentID string, at time.Time) (bool, error) {
	const query = `
        UPDATE envelopes SET status='active', assigned_to=$1, accepted_at=$2
        WHERE id=$3 AND status='pending' AND assigned_to IS NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, agentID, at, envelopeID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *envelopeRepository) Complete(ctx context.Context, envelopeID, summary string, at time.Time) (bool, error) {
	const query = `
        UPDATE envelopes SET status='completed', summary=$1, completed_at=$2
        WHERE id=$3 AND status='active'`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, summary, at, envelopeID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *envelopeRepository) query(ctx context.Context, query string, args ...any) ([]domain.Envelope, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Envelope
	for rows.Next() {
		var env domain.Envelope
		if err := rows.Scan(
			&env.ID,
			&env.TicketID,
			&env.RequestedBy,
			&env.TeamID,
			&env.TargetAgentID,
			&env.AssignedTo,
			&env.Status,
			&env.Reason,
			&env.Summary,
			&env.ResponseDueAt,
			&env.CreatedAt,
			&env.AcceptedAt,
			&env.CompletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, env)
	}
	return result, rows.Err()
}
