package dto

import (
	"time"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// CreateEnvelopeRequest routes a help request to a team or one agent.
type CreateEnvelopeRequest struct {
	Reason        string  `json:"reason"`
	TeamID        *string `json:"team_id"`
	TargetAgentID *string `json:"target_agent_id"`
	ResponseHours int     `json:"response_hours"`
}

// EnvelopeNoteRequest payload.
type EnvelopeNoteRequest struct {
	Content    string            `json:"content"`
	Visibility domain.Visibility `json:"visibility"`
}

// CompleteEnvelopeRequest payload.
type CompleteEnvelopeRequest struct {
	Summary string `json:"summary"`
}

// EnvelopeResponse representation.
type EnvelopeResponse struct {
	ID            string                `json:"id"`
	TicketID      string                `json:"ticket_id"`
	RequestedBy   string                `json:"requested_by"`
	TeamID        *string               `json:"team_id,omitempty"`
	TargetAgentID *string               `json:"target_agent_id,omitempty"`
	AssignedTo    *string               `json:"assigned_to"`
	Status        domain.EnvelopeStatus `json:"status"`
	Reason        string                `json:"reason"`
	Summary       *string               `json:"summary,omitempty"`
	ResponseDueAt time.Time             `json:"response_due_at"`
	CreatedAt     time.Time             `json:"created_at"`
	AcceptedAt    *time.Time            `json:"accepted_at,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}

// ExpertViewResponse is what a helping agent sees on a ticket.
type ExpertViewResponse struct {
	Ticket             TicketResponse     `json:"ticket"`
	MyEnvelopes        []EnvelopeResponse `json:"my_envelopes"`
	AvailableEnvelopes []EnvelopeResponse `json:"available_envelopes"`
	CanAddEnvelope     bool               `json:"can_add_envelope"`
	IsOwner            bool               `json:"is_owner"`
}

// AgentInboxResponse lists an agent's envelopes across tickets.
type AgentInboxResponse struct {
	Assigned  []EnvelopeResponse `json:"assigned"`
	Available []EnvelopeResponse `json:"available"`
}
