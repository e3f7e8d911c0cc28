package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent    AgentRole = "agent"
	AgentRoleTeamLead AgentRole = "team_lead"
	AgentRoleManager  AgentRole = "manager"
	AgentRoleAdmin    AgentRole = "admin"
)

const (
	DefaultMaxTickets       = 25
	DefaultEmpowermentLimit = 100.0
)

// Agent models a support agent. TeamIDs keeps stored membership order; the
// first entry is treated as the primary team.
type Agent struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             AgentRole
	TeamIDs          []string
	MaxTickets       int
	CurrentTickets   int
	EmpowermentLimit float64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InTeam reports membership of teamID.
func (a *Agent) InTeam(teamID string) bool {
	if a == nil {
		return false
	}
	for _, id := range a.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// HasCapacity reports whether another ticket can be accepted.
func (a *Agent) HasCapacity() bool {
	return a.CurrentTickets < a.MaxTickets
}
