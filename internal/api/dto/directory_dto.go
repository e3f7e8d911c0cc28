package dto

import (
	"time"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returns the bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Tier1Limit   float64 `json:"tier1_limit"`
	Tier2Limit   float64 `json:"tier2_limit"`
	SupervisorID *string `json:"supervisor_id"`
	ManagerID    *string `json:"manager_id"`
}

// TeamResponse representation.
type TeamResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Tier1Limit   float64   `json:"tier1_limit"`
	Tier2Limit   float64   `json:"tier2_limit"`
	SupervisorID *string   `json:"supervisor_id,omitempty"`
	ManagerID    *string   `json:"manager_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Password         string           `json:"password"`
	Role             domain.AgentRole `json:"role"`
	TeamIDs          []string         `json:"team_ids"`
	MaxTickets       int              `json:"max_tickets"`
	EmpowermentLimit float64          `json:"empowerment_limit"`
}

// UpdateAgentRequest payload. Omitted fields are unchanged.
type UpdateAgentRequest struct {
	Name             *string           `json:"name"`
	Role             *domain.AgentRole `json:"role"`
	TeamIDs          []string          `json:"team_ids"`
	MaxTickets       *int              `json:"max_tickets"`
	EmpowermentLimit *float64          `json:"empowerment_limit"`
	IsActive         *bool             `json:"is_active"`
}

// AgentResponse representation.
type AgentResponse struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Role             domain.AgentRole `json:"role"`
	TeamIDs          []string         `json:"team_ids"`
	MaxTickets       int              `json:"max_tickets"`
	CurrentTickets   int              `json:"current_tickets"`
	EmpowermentLimit float64          `json:"empowerment_limit"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
}

// CreateCompanyRequest payload.
type CreateCompanyRequest struct {
	Name string              `json:"name"`
	Tier domain.CustomerTier `json:"tier"`
}

// CompanyResponse representation.
type CompanyResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Tier      domain.CustomerTier `json:"tier"`
	CreatedAt time.Time           `json:"created_at"`
}

// CreateContactRequest payload.
type CreateContactRequest struct {
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	CompanyID *string             `json:"company_id"`
	Tier      domain.CustomerTier `json:"tier"`
}

// ContactResponse representation.
type ContactResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	CompanyID *string             `json:"company_id,omitempty"`
	Tier      domain.CustomerTier `json:"tier"`
	CreatedAt time.Time           `json:"created_at"`
}
