package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// AgentRepository handles persistence for agents. Update does not touch
// current_tickets; counters move only through ReserveCapacity and
// AdjustTicketCount.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	ListByTeam(ctx context.Context, teamID string) ([]domain.Agent, error)
	ReserveCapacity(ctx context.Context, agentID string) (bool, error)
	AdjustTicketCount(ctx context.Context, agentID string, delta int) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentSelect = `
        SELECT a.id, a.name, a.email, a.password_hash, a.role,
               COALESCE(ARRAY(SELECT at.team_id::text FROM agent_teams at WHERE at.agent_id=a.id ORDER BY at.position), '{}'),
               a.max_tickets, a.current_tickets, a.empowerment_limit, a.is_active, a.created_at, a.updated_at
        FROM agents a`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (id, name, email, password_hash, role, max_tickets, current_tickets, empowerment_limit, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, updated_at`
	db := conn(ctx, r.pool)
	if err := db.QueryRow(ctx, query,
		agent.ID,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.MaxTickets,
		agent.CurrentTickets,
		agent.EmpowermentLimit,
		agent.IsActive,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt); err != nil {
		return err
	}
	return r.replaceTeams(ctx, db, agent)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, password_hash=$3, role=$4, max_tickets=$5, empowerment_limit=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8`
	db := conn(ctx, r.pool)
	cmd, err := db.Exec(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.MaxTickets,
		agent.EmpowermentLimit,
		agent.IsActive,
		agent.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return r.replaceTeams(ctx, db, agent)
}

func (r *agentRepository) replaceTeams(ctx context.Context, db DBTX, agent *domain.Agent) error {
	if _, err := db.Exec(ctx, `DELETE FROM agent_teams WHERE agent_id=$1`, agent.ID); err != nil {
		return err
	}
	for i, teamID := range agent.TeamIDs {
		if _, err := db.Exec(ctx,
			`INSERT INTO agent_teams (agent_id, team_id, position) VALUES ($1,$2,$3)`,
			agent.ID, teamID, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, agentSelect+` WHERE a.id=$1`, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, agentSelect+` WHERE a.email=$1`, email)
}

func (r *agentRepository) ListByTeam(ctx context.Context, teamID string) ([]domain.Agent, error) {
	query := agentSelect + ` WHERE EXISTS (SELECT 1 FROM agent_teams m WHERE m.agent_id=a.id AND m.team_id=$1) ORDER BY a.created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

// ReserveCapacity increments current_tickets only while below max_tickets.
func (r *agentRepository) ReserveCapacity(ctx context.Context, agentID string) (bool, error) {
	const query = `
        UPDATE agents SET current_tickets = current_tickets + 1, updated_at=NOW()
        WHERE id=$1 AND current_tickets < max_tickets`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, agentID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// AdjustTicketCount applies delta, never going below zero.
func (r *agentRepository) AdjustTicketCount(ctx context.Context, agentID string, delta int) error {
	const query = `
        UPDATE agents SET current_tickets = GREATEST(current_tickets + $1, 0), updated_at=NOW()
        WHERE id=$2`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, delta, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	return scanAgent(conn(ctx, r.pool).QueryRow(ctx, query, arg))
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.Role,
		&agent.TeamIDs,
		&agent.MaxTickets,
		&agent.CurrentTickets,
		&agent.EmpowermentLimit,
		&agent.IsActive,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
