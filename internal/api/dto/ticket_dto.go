package dto

import (
	"time"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Type        domain.TicketType     `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	RequesterID string                `json:"requester_id"`
	CompanyID   *string               `json:"company_id"`
	TeamID      *string               `json:"team_id"`
}

// TransferTicketRequest payload for emergency transfers.
type TransferTicketRequest struct {
	NewOwnerID   string              `json:"new_owner_id"`
	Reason       string              `json:"reason"`
	TransferType domain.TransferType `json:"transfer_type"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ReplyRequest payload for outbound public replies.
type ReplyRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AddFlagRequest payload.
type AddFlagRequest struct {
	Type   domain.CaseFlagType `json:"type"`
	Reason string              `json:"reason"`
}

// TicketResponse is the agent-facing ticket representation.
type TicketResponse struct {
	ID                 string                `json:"id"`
	Reference          string                `json:"reference"`
	Subject            string                `json:"subject"`
	Description        string                `json:"description"`
	Type               domain.TicketType     `json:"type"`
	Priority           domain.TicketPriority `json:"priority"`
	Status             domain.TicketStatus   `json:"status"`
	OwnerID            *string               `json:"owner_id"`
	OwnerAcceptedAt    *time.Time            `json:"owner_accepted_at,omitempty"`
	RequesterID        string                `json:"requester_id"`
	CompanyID          *string               `json:"company_id,omitempty"`
	TeamID             *string               `json:"team_id,omitempty"`
	SLABreachAt        *time.Time            `json:"sla_breach_at,omitempty"`
	FirstResponseAt    *time.Time            `json:"first_response_at,omitempty"`
	HasActiveEnvelopes bool                  `json:"has_active_envelopes"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	ResolvedAt         *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt           *time.Time            `json:"closed_at,omitempty"`
}

// TimelineEntryResponse is one visible timeline entry.
type TimelineEntryResponse struct {
	ID         string                   `json:"id"`
	EnvelopeID *string                  `json:"envelope_id,omitempty"`
	Type       domain.TimelineEntryType `json:"type"`
	Visibility domain.Visibility        `json:"visibility"`
	AuthorID   *string                  `json:"author_id,omitempty"`
	AuthorType domain.AuthorType        `json:"author_type"`
	Subject    string                   `json:"subject,omitempty"`
	Content    string                   `json:"content"`
	CreatedAt  time.Time                `json:"created_at"`
}

// CaseFlagResponse representation.
type CaseFlagResponse struct {
	ID        string              `json:"id"`
	TicketID  string              `json:"ticket_id"`
	Type      domain.CaseFlagType `json:"type"`
	Reason    string              `json:"reason"`
	AddedBy   string              `json:"added_by"`
	CreatedAt time.Time           `json:"created_at"`
}

// ScoredTicketResponse pairs a ticket with its score breakdown.
type ScoredTicketResponse struct {
	Ticket TicketResponse        `json:"ticket"`
	Score  PriorityScoreResponse `json:"score"`
}

// PriorityScoreResponse is the auditable score breakdown.
type PriorityScoreResponse struct {
	TicketID     string             `json:"ticket_id"`
	Base         float64            `json:"base"`
	Multipliers  map[string]float64 `json:"multipliers"`
	Score        float64            `json:"score"`
	CalculatedAt time.Time          `json:"calculated_at"`
}

// WorkQueueResponse buckets an owner's open tickets.
type WorkQueueResponse struct {
	AgentID         string                 `json:"agent_id"`
	NeedsAttention  []ScoredTicketResponse `json:"needs_attention"`
	WaitingOnOthers []ScoredTicketResponse `json:"waiting_on_others"`
	OnTrack         []ScoredTicketResponse `json:"on_track"`
	Total           int                    `json:"total"`
}
