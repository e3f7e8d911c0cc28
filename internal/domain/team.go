package domain

import "time"

const (
	DefaultTier1Limit = 100.0
	DefaultTier2Limit = 500.0
)

// Team groups agents and carries the empowerment thresholds.
type Team struct {
	ID           string
	Name         string
	Description  string
	Tier1Limit   float64
	Tier2Limit   float64
	SupervisorID *string
	ManagerID    *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
