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

// ResolutionFilter narrows resolution listings.
type ResolutionFilter struct {
	ApprovalStatus *domain.ApprovalStatus
	Tiers          []domain.EmpowermentTier
	AgentIDs       []string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// ResolutionRepository persists resolutions.
type ResolutionRepository interface {
	Create(ctx context.Context, resolution *domain.Resolution) error
	Update(ctx context.Context, resolution *domain.Resolution) error
	GetByID(ctx context.Context, id string) (*domain.Resolution, error)
	List(ctx context.Context, filter ResolutionFilter) ([]domain.Resolution, error)
}

type resolutionRepository struct {
	pool *pgxpool.Pool
}

// NewResolutionRepository builds repository.
func NewResolutionRepository(pool *pgxpool.Pool) ResolutionRepository {
	return &resolutionRepository{pool: pool}
}

const resolutionColumns = `id, ticket_id, agent_id, what_went_wrong, what_went_wrong_category, why_eligible,
               why_eligible_category, resolution_type, resolution_details, amount, currency, empowerment_tier,
               approval_status, approved_by, approved_at, approval_notes, calibration_status, created_at`

func (r *resolutionRepository) Create(ctx context.Context, res *domain.Resolution) error {
	const query = `
        INSERT INTO resolutions (id, ticket_id, agent_id, what_went_wrong, what_went_wrong_category, why_eligible,
            why_eligible_category, resolution_type, resolution_details, amount, currency, empowerment_tier,
            approval_status, approved_by, approved_at, approval_notes, calibration_status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		res.ID,
		res.TicketID,
		res.AgentID,
		res.WhatWentWrong,
		res.WhatWentWrongCategory,
		res.WhyEligible,
		res.WhyEligibleCategory,
		res.ResolutionType,
		res.ResolutionDetails,
		res.Amount,
		res.Currency,
		res.EmpowermentTier,
		res.ApprovalStatus,
		res.ApprovedBy,
		res.ApprovedAt,
		res.ApprovalNotes,
		res.CalibrationStatus,
		res.CreatedAt,
	)
	return err
}

func (r *resolutionRepository) Update(ctx context.Context, res *domain.Resolution) error {
	const query = `
        UPDATE resolutions SET approval_status=$1, approved_by=$2, approved_at=$3, approval_notes=$4,
            calibration_status=$5
        WHERE id=$6`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		res.ApprovalStatus,
		res.ApprovedBy,
		res.ApprovedAt,
		res.ApprovalNotes,
		res.CalibrationStatus,
		res.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *resolutionRepository) GetByID(ctx context.Context, id string) (*domain.Resolution, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+resolutionColumns+` FROM resolutions WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result, err := scanResolutions(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &result[0], nil
}

func (r *resolutionRepository) List(ctx context.Context, filter ResolutionFilter) ([]domain.Resolution, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ApprovalStatus != nil {
		args = append(args, *filter.ApprovalStatus)
		clauses = append(clauses, fmt.Sprintf("approval_status=$%d", len(args)))
	}
	if len(filter.Tiers) > 0 {
		placeholders := make([]string, len(filter.Tiers))
		for i, tier := range filter.Tiers {
			args = append(args, tier)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("empowerment_tier IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AgentIDs != nil {
		args = append(args, filter.AgentIDs)
		clauses = append(clauses, fmt.Sprintf("agent_id::text = ANY($%d)", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM resolutions WHERE %s ORDER BY created_at ASC`,
		resolutionColumns, strings.Join(clauses, " AND "))
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResolutions(rows)
}

func scanResolutions(rows pgx.Rows) ([]domain.Resolution, error) {
	var result []domain.Resolution
	for rows.Next() {
		var res domain.Resolution
		if err := rows.Scan(
			&res.ID,
			&res.TicketID,
			&res.AgentID,
			&res.WhatWentWrong,
			&res.WhatWentWrongCategory,
			&res.WhyEligible,
			&res.WhyEligibleCategory,
			&res.ResolutionType,
			&res.ResolutionDetails,
			&res.Amount,
			&res.Currency,
			&res.EmpowermentTier,
			&res.ApprovalStatus,
			&res.ApprovedBy,
			&res.ApprovedAt,
			&res.ApprovalNotes,
			&res.CalibrationStatus,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, rows.Err()
}
