package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ownerdesk/ticket-engine/internal/auth"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// AuthService authenticates agents and issues bearer tokens.
type AuthService struct {
	agents   repository.AgentRepository
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(agents repository.AgentRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{agents: agents, tokenMgr: tokens}
}

// LoginAgent checks credentials and returns a signed token with its expiry.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	invalid := apperrors.NewUnauthorized("invalid credentials")

	agent, err := s.agents.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, invalid
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, invalid
	}
	if !agent.IsActive {
		return nil, "", time.Time{}, apperrors.NewAgentInactive(agent.ID)
	}

	token, exp, err := s.tokenMgr.GenerateToken(agent)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return agent, token, exp, nil
}
