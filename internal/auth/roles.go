package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// RequireAgentRole ensures the authenticated agent has one of the allowed
// roles. With no roles it only requires an agent.
func RequireAgentRole(allowed ...domain.AgentRole) fiber.Handler {
	allowedSet := make(map[domain.AgentRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Agent == nil {
			return apperrors.NewUnauthorized("agent authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Agent.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// HasRole reports whether agent holds one of roles.
func HasRole(agent *domain.Agent, roles ...domain.AgentRole) bool {
	if agent == nil {
		return false
	}
	for _, role := range roles {
		if agent.Role == role {
			return true
		}
	}
	return false
}
