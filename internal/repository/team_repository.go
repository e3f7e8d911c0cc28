package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// TeamRepository manages persistence for teams.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	ListBySupervisor(ctx context.Context, supervisorID string) ([]domain.Team, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

const teamColumns = `id, name, description, tier1_limit, tier2_limit, supervisor_id, manager_id, is_active, created_at, updated_at`

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (id, name, description, tier1_limit, tier2_limit, supervisor_id, manager_id, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		team.ID,
		team.Name,
		team.Description,
		team.Tier1Limit,
		team.Tier2Limit,
		team.SupervisorID,
		team.ManagerID,
		team.IsActive,
	).Scan(&team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	const query = `
        UPDATE teams SET name=$1, description=$2, tier1_limit=$3, tier2_limit=$4, supervisor_id=$5,
            manager_id=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		team.Name,
		team.Description,
		team.Tier1Limit,
		team.Tier2Limit,
		team.SupervisorID,
		team.ManagerID,
		team.IsActive,
		team.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+teamColumns+` FROM teams WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	teams, err := scanTeams(rows)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &teams[0], nil
}

func (r *teamRepository) ListBySupervisor(ctx context.Context, supervisorID string) ([]domain.Team, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE supervisor_id=$1 AND is_active=TRUE ORDER BY name`, supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTeams(rows)
}

func scanTeams(rows pgx.Rows) ([]domain.Team, error) {
	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(
			&team.ID,
			&team.Name,
			&team.Description,
			&team.Tier1Limit,
			&team.Tier2Limit,
			&team.SupervisorID,
			&team.ManagerID,
			&team.IsActive,
			&team.CreatedAt,
			&team.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}
