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

// TicketFilter captures queue and sweep search parameters.
type TicketFilter struct {
	OwnerID    *string
	TeamID     *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Update never writes
// owner_id or owner_released_at; those change only through the conditional
// methods below.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate reads the ticket and locks it until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ClaimOwner(ctx context.Context, ticketID, agentID string, at time.Time) (bool, error)
	TransferOwner(ctx context.Context, ticketID, fromAgentID, toAgentID string, at time.Time) (bool, error)
	// MarkReleased stamps owner_released_at while ownerID still owns the
	// ticket and no release is recorded.
	MarkReleased(ctx context.Context, ticketID, ownerID string, at time.Time) (bool, error)
	// ClearReleased removes a recorded release.
	ClearReleased(ctx context.Context, ticketID string) (bool, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, reference, subject, description, type, priority, status, owner_id, owner_accepted_at,
               owner_released_at, requester_id, company_id, team_id, sla_breach_at, first_response_at, has_active_envelopes,
               created_at, updated_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, reference, subject, description, type, priority, status, requester_id,
            company_id, team_id, sla_breach_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.ID,
		ticket.Reference,
		ticket.Subject,
		ticket.Description,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.RequesterID,
		ticket.CompanyID,
		ticket.TeamID,
		ticket.SLABreachAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, type=$3, priority=$4, status=$5, team_id=$6,
            sla_breach_at=$7, first_response_at=$8, has_active_envelopes=$9, resolved_at=$10, closed_at=$11,
            updated_at=$12
        WHERE id=$13`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.TeamID,
		ticket.SLABreachAt,
		ticket.FirstResponseAt,
		ticket.HasActiveEnvelopes,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.getOne(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.getOne(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) getOne(ctx context.Context, query string, id string) (*domain.Ticket, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

// ClaimOwner sets owner_id only while it is still NULL.
func (r *ticketRepository) ClaimOwner(ctx context.Context, ticketID, agentID string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET owner_id=$1, owner_accepted_at=$2, updated_at=$2
        WHERE id=$3 AND owner_id IS NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, agentID, at, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// TransferOwner swaps owner_id only if it still equals fromAgentID.
func (r *ticketRepository) TransferOwner(ctx context.Context, ticketID, fromAgentID, toAgentID string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET owner_id=$1, owner_accepted_at=$2, updated_at=$2
        WHERE id=$3 AND owner_id=$4`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, toAgentID, at, ticketID, fromAgentID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// MarkReleased records the capacity release at most once per ownership.
func (r *ticketRepository) MarkReleased(ctx context.Context, ticketID, ownerID string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET owner_released_at=$1, updated_at=$1
        WHERE id=$2 AND owner_id=$3 AND owner_released_at IS NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, at, ticketID, ownerID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ClearReleased(ctx context.Context, ticketID string) (bool, error) {
	const query = `UPDATE tickets SET owner_released_at=NULL WHERE id=$1 AND owner_released_at IS NOT NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Reference,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Type,
			&ticket.Priority,
			&ticket.Status,
			&ticket.OwnerID,
			&ticket.OwnerAcceptedAt,
			&ticket.OwnerReleasedAt,
			&ticket.RequesterID,
			&ticket.CompanyID,
			&ticket.TeamID,
			&ticket.SLABreachAt,
			&ticket.FirstResponseAt,
			&ticket.HasActiveEnvelopes,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
