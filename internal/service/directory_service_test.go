package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownerdesk/ticket-engine/internal/auth"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

func TestCreateTeam(t *testing.T) {
	f := newFixture(t)
	admin := f.agent("admin-1")

	_, err := f.directory.CreateTeam(f.ctx, f.agent("mgr-1"), CreateTeamInput{Name: "Returns"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	team, err := f.directory.CreateTeam(f.ctx, admin, CreateTeamInput{Name: " Returns ", ManagerID: strPtr("mgr-1")})
	require.NoError(t, err)
	assert.Equal(t, "Returns", team.Name)
	assert.Equal(t, domain.DefaultTier1Limit, team.Tier1Limit)
	assert.Equal(t, domain.DefaultTier2Limit, team.Tier2Limit)
	assert.True(t, team.IsActive)

	_, err = f.directory.CreateTeam(f.ctx, admin, CreateTeamInput{Name: "Odd", Tier1Limit: 600, Tier2Limit: 500})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.directory.CreateTeam(f.ctx, admin, CreateTeamInput{Name: "Ghosts", SupervisorID: strPtr("nobody")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	fetched, err := f.directory.GetTeam(f.ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, fetched.ID)
}

func TestCreateAndUpdateAgent(t *testing.T) {
	f := newFixture(t)
	admin := f.agent("admin-1")

	agent, err := f.directory.CreateAgent(f.ctx, admin, CreateAgentInput{
		Name:     "Nina",
		Email:    " Nina@Example.com ",
		Password: "correct horse",
		TeamIDs:  []string{"team-support", "team-support", "team-billing"},
	})
	require.NoError(t, err)
	assert.Equal(t, "nina@example.com", agent.Email)
	assert.Equal(t, domain.AgentRoleAgent, agent.Role)
	assert.Equal(t, []string{"team-support", "team-billing"}, agent.TeamIDs)
	assert.Equal(t, domain.DefaultMaxTickets, agent.MaxTickets)
	assert.Equal(t, domain.DefaultEmpowermentLimit, agent.EmpowermentLimit)
	assert.NotEqual(t, "correct horse", agent.PasswordHash)

	_, err = f.directory.CreateAgent(f.ctx, admin, CreateAgentInput{Name: "Dup", Email: "nina@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = f.directory.CreateAgent(f.ctx, admin, CreateAgentInput{Name: "Short", Email: "s@example.com", Password: "short"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.directory.CreateAgent(f.ctx, admin, CreateAgentInput{Name: "Lost", Email: "l@example.com", Password: "long enough", TeamIDs: []string{"team-x"}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.directory.CreateAgent(f.ctx, f.agent("lead-1"), CreateAgentInput{Name: "X", Email: "x@example.com", Password: "long enough"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	role := domain.AgentRoleTeamLead
	limit := 250.0
	inactive := false
	updated, err := f.directory.UpdateAgent(f.ctx, admin, agent.ID, UpdateAgentInput{
		Role:             &role,
		EmpowermentLimit: &limit,
		IsActive:         &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleTeamLead, updated.Role)
	assert.Equal(t, 250.0, updated.EmpowermentLimit)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Nina", updated.Name)

	zero := 0
	_, err = f.directory.UpdateAgent(f.ctx, admin, agent.ID, UpdateAgentInput{MaxTickets: &zero})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.directory.UpdateAgent(f.ctx, admin, "missing", UpdateAgentInput{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCustomersDirectory(t *testing.T) {
	f := newFixture(t)

	company, err := f.directory.CreateCompany(f.ctx, "Globex", "")
	require.NoError(t, err)
	assert.Equal(t, domain.CustomerTierStandard, company.Tier)

	_, err = f.directory.CreateCompany(f.ctx, "Globex", "gold")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	contact, err := f.directory.CreateContact(f.ctx, CreateContactInput{
		Name: "Hank", Email: "HANK@globex.com", CompanyID: &company.ID, Tier: domain.CustomerTierPremium,
	})
	require.NoError(t, err)
	assert.Equal(t, "hank@globex.com", contact.Email)

	_, err = f.directory.CreateContact(f.ctx, CreateContactInput{Email: "x@y.z", CompanyID: strPtr("nope")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	ticket, err := f.tickets.CreateTicket(f.ctx, CreateTicketInput{Subject: "Hello", RequesterID: contact.ID})
	require.NoError(t, err)
	assert.Equal(t, company.ID, *ticket.CompanyID)
}

func TestBootstrapAdminAndLogin(t *testing.T) {
	f := newFixture(t)

	admin, err := f.directory.BootstrapAdmin(f.ctx, "", "root@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAdmin, admin.Role)
	assert.Equal(t, "Administrator", admin.Name)

	again, err := f.directory.BootstrapAdmin(f.ctx, "Other", "ROOT@example.com", "another-pass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	tokens := auth.NewTokenManager("test-secret", 15)
	login := NewAuthService(f.store.Agents(), tokens)

	agent, token, expires, err := login.LoginAgent(f.ctx, "Root@Example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, agent.ID)
	assert.NotEmpty(t, token)
	assert.False(t, expires.IsZero())

	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AgentID())
	assert.Equal(t, domain.AgentRoleAdmin, claims.Role)

	_, _, _, err = login.LoginAgent(f.ctx, "root@example.com", "wrong-pass")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, _, _, err = login.LoginAgent(f.ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	inactive := false
	_, err = f.directory.UpdateAgent(f.ctx, admin, admin.ID, UpdateAgentInput{IsActive: &inactive})
	require.NoError(t, err)
	_, _, _, err = login.LoginAgent(f.ctx, "root@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, apperrors.ErrAgentInactive)
}
