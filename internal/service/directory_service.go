package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/auth"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// DirectoryService manages teams, agents and customer records.
type DirectoryService struct {
	teams      repository.TeamRepository
	agents     repository.AgentRepository
	customers  repository.CustomerRepository
	bcryptCost int
	logger     *zap.Logger
}

// DirectoryDependencies encapsulates repositories required for directory management.
type DirectoryDependencies struct {
	TeamRepo     repository.TeamRepository
	AgentRepo    repository.AgentRepository
	CustomerRepo repository.CustomerRepository
	BcryptCost   int
	Logger       *zap.Logger
}

// CreateTeamInput describes a new team.
type CreateTeamInput struct {
	Name         string
	Description  string
	Tier1Limit   float64
	Tier2Limit   float64
	SupervisorID *string
	ManagerID    *string
}

// CreateAgentInput describes a new agent account.
type CreateAgentInput struct {
	Name             string
	Email            string
	Password         string
	Role             domain.AgentRole
	TeamIDs          []string
	MaxTickets       int
	EmpowermentLimit float64
}

// UpdateAgentInput carries the mutable agent fields. Nil fields are kept.
type UpdateAgentInput struct {
	Name             *string
	Role             *domain.AgentRole
	TeamIDs          []string
	MaxTickets       *int
	EmpowermentLimit *float64
	IsActive         *bool
}

// CreateContactInput describes a requester.
type CreateContactInput struct {
	Name      string
	Email     string
	CompanyID *string
	Tier      domain.CustomerTier
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		teams:      deps.TeamRepo,
		agents:     deps.AgentRepo,
		customers:  deps.CustomerRepo,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

func requireAdmin(actor *domain.Agent) error {
	if !auth.HasRole(actor, domain.AgentRoleAdmin) {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func validAgentRole(role domain.AgentRole) bool {
	switch role {
	case domain.AgentRoleAgent, domain.AgentRoleTeamLead, domain.AgentRoleManager, domain.AgentRoleAdmin:
		return true
	}
	return false
}

func validCustomerTier(tier domain.CustomerTier) bool {
	switch tier {
	case domain.CustomerTierStandard, domain.CustomerTierPremium, domain.CustomerTierVIP:
		return true
	}
	return false
}

// CreateTeam adds a team. Unset empowerment limits take the defaults.
func (s *DirectoryService) CreateTeam(ctx context.Context, actor *domain.Agent, input CreateTeamInput) (*domain.Team, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("team name is required", nil)
	}
	team := &domain.Team{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Tier1Limit:   input.Tier1Limit,
		Tier2Limit:   input.Tier2Limit,
		SupervisorID: input.SupervisorID,
		ManagerID:    input.ManagerID,
		IsActive:     true,
	}
	if team.Tier1Limit <= 0 {
		team.Tier1Limit = domain.DefaultTier1Limit
	}
	if team.Tier2Limit <= 0 {
		team.Tier2Limit = domain.DefaultTier2Limit
	}
	if team.Tier1Limit >= team.Tier2Limit {
		return nil, apperrors.NewValidationError("tier1 limit must be below tier2 limit",
			map[string]any{"tier1_limit": team.Tier1Limit, "tier2_limit": team.Tier2Limit})
	}
	for _, id := range []*string{team.SupervisorID, team.ManagerID} {
		if id == nil {
			continue
		}
		if _, err := s.agents.GetByID(ctx, *id); err != nil {
			return nil, notFound(err, "agent", *id)
		}
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// GetTeam fetches a team.
func (s *DirectoryService) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "team", id)
	}
	return team, nil
}

// CreateAgent adds an agent account.
func (s *DirectoryService) CreateAgent(ctx context.Context, actor *domain.Agent, input CreateAgentInput) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.createAgent(ctx, input)
}

func (s *DirectoryService) createAgent(ctx context.Context, input CreateAgentInput) (*domain.Agent, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if input.Role == "" {
		input.Role = domain.AgentRoleAgent
	}
	if !validAgentRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if existing, err := s.agents.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("agent email already exists", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if err := s.checkTeams(ctx, input.TeamIDs); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	agent := &domain.Agent{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(input.Name),
		Email:            email,
		PasswordHash:     hash,
		Role:             input.Role,
		TeamIDs:          uniqueIDs(input.TeamIDs...),
		MaxTickets:       input.MaxTickets,
		EmpowermentLimit: input.EmpowermentLimit,
		IsActive:         true,
	}
	if agent.MaxTickets <= 0 {
		agent.MaxTickets = domain.DefaultMaxTickets
	}
	if agent.EmpowermentLimit <= 0 {
		agent.EmpowermentLimit = domain.DefaultEmpowermentLimit
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// UpdateAgent changes role, membership, limits or activity of an agent.
func (s *DirectoryService) UpdateAgent(ctx context.Context, actor *domain.Agent, agentID string, input UpdateAgentInput) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, notFound(err, "agent", agentID)
	}
	if input.Name != nil {
		agent.Name = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil {
		if !validAgentRole(*input.Role) {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
		}
		agent.Role = *input.Role
	}
	if input.TeamIDs != nil {
		if err := s.checkTeams(ctx, input.TeamIDs); err != nil {
			return nil, err
		}
		agent.TeamIDs = uniqueIDs(input.TeamIDs...)
	}
	if input.MaxTickets != nil {
		if *input.MaxTickets <= 0 {
			return nil, apperrors.NewValidationError("max tickets must be positive", nil)
		}
		agent.MaxTickets = *input.MaxTickets
	}
	if input.EmpowermentLimit != nil {
		if *input.EmpowermentLimit < 0 {
			return nil, apperrors.NewValidationError("empowerment limit must not be negative", nil)
		}
		agent.EmpowermentLimit = *input.EmpowermentLimit
	}
	if input.IsActive != nil {
		agent.IsActive = *input.IsActive
	}
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.agents.GetByID(ctx, agent.ID)
}

// GetAgent fetches an agent.
func (s *DirectoryService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "agent", id)
	}
	return agent, nil
}

func (s *DirectoryService) checkTeams(ctx context.Context, teamIDs []string) error {
	for _, id := range teamIDs {
		team, err := s.teams.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "team", id)
		}
		if !team.IsActive {
			return apperrors.NewConflict("team inactive", map[string]any{"team_id": id})
		}
	}
	return nil
}

// CreateCompany records a customer company.
func (s *DirectoryService) CreateCompany(ctx context.Context, name string, tier domain.CustomerTier) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("company name is required", nil)
	}
	if tier == "" {
		tier = domain.CustomerTierStandard
	}
	if !validCustomerTier(tier) {
		return nil, apperrors.NewValidationError("unknown customer tier", map[string]any{"tier": tier})
	}
	company := &domain.Company{ID: uuid.NewString(), Name: name, Tier: tier}
	if err := s.customers.CreateCompany(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	return company, nil
}

// CreateContact records a requester, optionally attached to a company.
func (s *DirectoryService) CreateContact(ctx context.Context, input CreateContactInput) (*domain.Contact, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewValidationError("contact email is required", nil)
	}
	if input.Tier == "" {
		input.Tier = domain.CustomerTierStandard
	}
	if !validCustomerTier(input.Tier) {
		return nil, apperrors.NewValidationError("unknown customer tier", map[string]any{"tier": input.Tier})
	}
	if input.CompanyID != nil {
		if _, err := s.customers.GetCompany(ctx, *input.CompanyID); err != nil {
			return nil, notFound(err, "company", *input.CompanyID)
		}
	}
	contact := &domain.Contact{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Email:     email,
		CompanyID: input.CompanyID,
		Tier:      input.Tier,
	}
	if err := s.customers.CreateContact(ctx, contact); err != nil {
		return nil, apperrors.MapError(err)
	}
	return contact, nil
}

// BootstrapAdmin creates the first admin account when email is unused. It is
// a no-op for an existing account.
func (s *DirectoryService) BootstrapAdmin(ctx context.Context, name, email, password string) (*domain.Agent, error) {
	existing, err := s.agents.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if name == "" {
		name = "Administrator"
	}
	agent, err := s.createAgent(ctx, CreateAgentInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.AgentRoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("bootstrap admin created", zap.String("agent_id", agent.ID), zap.String("email", agent.Email))
	return agent, nil
}
