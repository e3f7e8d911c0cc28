package memory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

type agentRepo struct{ s *Store }

func (r agentRepo) Create(_ context.Context, agent *domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	agent.CreatedAt, agent.UpdatedAt = now, now
	stored := *agent
	stored.TeamIDs = cloneStrings(agent.TeamIDs)
	r.s.agents[agent.ID] = stored
	r.s.agentOrder = append(r.s.agentOrder, agent.ID)
	return nil
}

func (r agentRepo) Update(_ context.Context, agent *domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.agents[agent.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := *agent
	updated.TeamIDs = cloneStrings(agent.TeamIDs)
	updated.CurrentTickets = current.CurrentTickets
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()
	r.s.agents[agent.ID] = updated
	return nil
}

func (r agentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	agent, ok := r.s.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	agent.TeamIDs = cloneStrings(agent.TeamIDs)
	return &agent, nil
}

func (r agentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range r.s.agentOrder {
		if agent := r.s.agents[id]; agent.Email == email {
			agent.TeamIDs = cloneStrings(agent.TeamIDs)
			return &agent, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r agentRepo) ListByTeam(_ context.Context, teamID string) ([]domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Agent
	for _, id := range r.s.agentOrder {
		agent := r.s.agents[id]
		if contains(agent.TeamIDs, teamID) {
			agent.TeamIDs = cloneStrings(agent.TeamIDs)
			result = append(result, agent)
		}
	}
	return result, nil
}

func (r agentRepo) ReserveCapacity(_ context.Context, agentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agent, ok := r.s.agents[agentID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if agent.CurrentTickets >= agent.MaxTickets {
		return false, nil
	}
	agent.CurrentTickets++
	r.s.agents[agentID] = agent
	return true, nil
}

func (r agentRepo) AdjustTicketCount(_ context.Context, agentID string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agent, ok := r.s.agents[agentID]
	if !ok {
		return pgx.ErrNoRows
	}
	agent.CurrentTickets += delta
	if agent.CurrentTickets < 0 {
		agent.CurrentTickets = 0
	}
	r.s.agents[agentID] = agent
	return nil
}

type teamRepo struct{ s *Store }

func (r teamRepo) Create(_ context.Context, team *domain.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	team.CreatedAt, team.UpdatedAt = now, now
	r.s.teams[team.ID] = *team
	return nil
}

func (r teamRepo) Update(_ context.Context, team *domain.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[team.ID]; !ok {
		return pgx.ErrNoRows
	}
	team.UpdatedAt = time.Now()
	r.s.teams[team.ID] = *team
	return nil
}

func (r teamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	team, ok := r.s.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &team, nil
}

func (r teamRepo) ListBySupervisor(_ context.Context, supervisorID string) ([]domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Team
	for _, team := range r.s.teams {
		if team.IsActive && team.SupervisorID != nil && *team.SupervisorID == supervisorID {
			result = append(result, team)
		}
	}
	return result, nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) CreateContact(_ context.Context, contact *domain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	contact.CreatedAt = time.Now()
	r.s.contacts[contact.ID] = *contact
	return nil
}

func (r customerRepo) GetContact(_ context.Context, id string) (*domain.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	contact, ok := r.s.contacts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &contact, nil
}

func (r customerRepo) CreateCompany(_ context.Context, company *domain.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	company.CreatedAt = time.Now()
	r.s.companies[company.ID] = *company
	return nil
}

func (r customerRepo) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	company, ok := r.s.companies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &company, nil
}
