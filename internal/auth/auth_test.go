package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository/memory"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	agent := &domain.Agent{ID: "agent-1", Role: domain.AgentRoleManager}

	token, exp, err := tm.GenerateToken(agent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID())
	assert.Equal(t, domain.AgentRoleManager, claims.Role)
	assert.Equal(t, domain.SubjectTypeAgent, claims.Subject)
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken(&domain.Agent{ID: "agent-1", Role: domain.AgentRoleAgent})
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", 1)
	token, _, err = other.GenerateToken(&domain.Agent{ID: "agent-1"})
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 1).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))

	err = ComparePassword(hash, "wrong horse")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)
}

func TestMiddlewareAndRoles(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Agents().Create(ctx, &domain.Agent{ID: "a-1", Name: "Ana", Email: "ana@example.com", Role: domain.AgentRoleAgent, IsActive: true, MaxTickets: 5}))
	require.NoError(t, store.Agents().Create(ctx, &domain.Agent{ID: "m-1", Name: "Max", Email: "max@example.com", Role: domain.AgentRoleManager, IsActive: true, MaxTickets: 5}))

	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, store.Agents())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.AgentID())
	})
	app.Get("/managers", mw.Handle, RequireAgentRole(domain.AgentRoleManager, domain.AgentRoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	agentToken, _, err := tm.GenerateToken(&domain.Agent{ID: "a-1", Role: domain.AgentRoleAgent})
	require.NoError(t, err)
	managerToken, _, err := tm.GenerateToken(&domain.Agent{ID: "m-1", Role: domain.AgentRoleManager})
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken(&domain.Agent{ID: "ghost", Role: domain.AgentRoleAdmin})
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"bad scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"unknown agent", "/me", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"agent ok", "/me", "Bearer " + agentToken, http.StatusOK},
		{"agent lacks role", "/managers", "Bearer " + agentToken, http.StatusForbidden},
		{"manager allowed", "/managers", "Bearer " + managerToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestHasRole(t *testing.T) {
	assert.False(t, HasRole(nil, domain.AgentRoleAdmin))
	assert.True(t, HasRole(&domain.Agent{Role: domain.AgentRoleTeamLead}, domain.AgentRoleTeamLead, domain.AgentRoleManager))
	assert.False(t, HasRole(&domain.Agent{Role: domain.AgentRoleAgent}, domain.AgentRoleTeamLead))
}
