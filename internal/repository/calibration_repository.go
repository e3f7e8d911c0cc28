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

// CalibrationFilter narrows calibration listings.
type CalibrationFilter struct {
	ReviewStatus *domain.ReviewStatus
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// CalibrationRepository persists calibration items. Enqueue is idempotent per
// (resolution, reason).
type CalibrationRepository interface {
	Enqueue(ctx context.Context, item *domain.CalibrationItem) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.CalibrationItem, error)
	Update(ctx context.Context, item *domain.CalibrationItem) error
	List(ctx context.Context, filter CalibrationFilter) ([]domain.CalibrationItem, error)
}

type calibrationRepository struct {
	pool *pgxpool.Pool
}

// NewCalibrationRepository builds repository.
func NewCalibrationRepository(pool *pgxpool.Pool) CalibrationRepository {
	return &calibrationRepository{pool: pool}
}

const calibrationColumns = `id, resolution_id, reason, review_status, outcome, reviewer_id, reviewer_notes, created_at, reviewed_at`

func (r *calibrationRepository) Enqueue(ctx context.Context, item *domain.CalibrationItem) (bool, error) {
	const query = `
        INSERT INTO calibration_items (id, resolution_id, reason, review_status, created_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (resolution_id, reason) DO NOTHING`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		item.ID,
		item.ResolutionID,
		item.Reason,
		item.ReviewStatus,
		item.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *calibrationRepository) GetByID(ctx context.Context, id string) (*domain.CalibrationItem, error) {
	items, err := r.query(ctx, `SELECT `+calibrationColumns+` FROM calibration_items WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &items[0], nil
}

func (r *calibrationRepository) Update(ctx context.Context, item *domain.CalibrationItem) error {
	const query = `
        UPDATE calibration_items SET review_status=$1, outcome=$2, reviewer_id=$3, reviewer_notes=$4, reviewed_at=$5
        WHERE id=$6`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		item.ReviewStatus,
		item.Outcome,
		item.ReviewerID,
		item.ReviewerNotes,
		item.ReviewedAt,
		item.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *calibrationRepository) List(ctx context.Context, filter CalibrationFilter) ([]domain.CalibrationItem, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.ReviewStatus != nil {
		args = append(args, *filter.ReviewStatus)
		clauses = append(clauses, fmt.Sprintf("review_status=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM calibration_items WHERE %s ORDER BY created_at ASC`,
		calibrationColumns, strings.Join(clauses, " AND "))
	return r.query(ctx, query, args...)
}

func (r *calibrationRepository) query(ctx context.Context, query string, args ...any) ([]domain.CalibrationItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CalibrationItem
	for rows.Next() {
		var item domain.CalibrationItem
		if err := rows.Scan(
			&item.ID,
			&item.ResolutionID,
			&item.Reason,
			&item.ReviewStatus,
			&item.Outcome,
			&item.ReviewerID,
			&item.ReviewerNotes,
			&item.CreatedAt,
			&item.ReviewedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
