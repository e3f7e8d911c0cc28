package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// CaseFlagRepository stores ticket flags.
type CaseFlagRepository interface {
	Create(ctx context.Context, flag *domain.CaseFlag) error
	GetByID(ctx context.Context, id string) (*domain.CaseFlag, error)
	ListActive(ctx context.Context, ticketID string) ([]domain.CaseFlag, error)
	Clear(ctx context.Context, id, clearedBy string, at time.Time) error
}

type caseFlagRepository struct {
	pool *pgxpool.Pool
}

// NewCaseFlagRepository builds repository.
func NewCaseFlagRepository(pool *pgxpool.Pool) CaseFlagRepository {
	return &caseFlagRepository{pool: pool}
}

const caseFlagColumns = `id, ticket_id, type, reason, added_by, created_at, cleared_at, cleared_by`

func (r *caseFlagRepository) Create(ctx context.Context, flag *domain.CaseFlag) error {
	const query = `
        INSERT INTO case_flags (id, ticket_id, type, reason, added_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		flag.ID,
		flag.TicketID,
		flag.Type,
		flag.Reason,
		flag.AddedBy,
		flag.CreatedAt,
	)
	return err
}

func (r *caseFlagRepository) GetByID(ctx context.Context, id string) (*domain.CaseFlag, error) {
	flags, err := r.query(ctx, `SELECT `+caseFlagColumns+` FROM case_flags WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(flags) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &flags[0], nil
}

// ListActive returns uncleared flags in creation order.
func (r *caseFlagRepository) ListActive(ctx context.Context, ticketID string) ([]domain.CaseFlag, error) {
	return r.query(ctx,
		`SELECT `+caseFlagColumns+` FROM case_flags WHERE ticket_id=$1 AND cleared_at IS NULL ORDER BY created_at ASC`,
		ticketID)
}

func (r *caseFlagRepository) Clear(ctx context.Context, id, clearedBy string, at time.Time) error {
	const query = `UPDATE case_flags SET cleared_at=$1, cleared_by=$2 WHERE id=$3 AND cleared_at IS NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, at, clearedBy, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseFlagRepository) query(ctx context.Context, query string, args ...any) ([]domain.CaseFlag, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseFlag
	for rows.Next() {
		var flag domain.CaseFlag
		if err := rows.Scan(
			&flag.ID,
			&flag.TicketID,
			&flag.Type,
			&flag.Reason,
			&flag.AddedBy,
			&flag.CreatedAt,
			&flag.ClearedAt,
			&flag.ClearedBy,
		); err != nil {
			return nil, err
		}
		result = append(result, flag)
	}
	return result, rows.Err()
}
