package events

import (
	"time"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketAccepted         EventType = "ticket_accepted"
	EventTicketTransferred      EventType = "ticket_transferred"
	EventEnvelopeCreated        EventType = "envelope_created"
	EventEnvelopeAccepted       EventType = "envelope_accepted"
	EventEnvelopeNoteAdded      EventType = "envelope_note_added"
	EventEnvelopeCompleted      EventType = "envelope_completed"
	EventAlertFired             EventType = "alert_fired"
	EventApprovalRequested      EventType = "resolution_approval_requested"
	EventResolutionApproved     EventType = "resolution_approved"
	EventResolutionRejected     EventType = "resolution_rejected"
	EventCalibrationCoachingDue EventType = "calibration_coaching_needed"
)

// AllEventTypes lists every type a delivery sink may subscribe to.
func AllEventTypes() []EventType {
	return []EventType{
		EventTicketCreated, EventTicketStatusChanged, EventTicketAccepted, EventTicketTransferred,
		EventEnvelopeCreated, EventEnvelopeAccepted, EventEnvelopeNoteAdded, EventEnvelopeCompleted,
		EventAlertFired, EventApprovalRequested, EventResolutionApproved, EventResolutionRejected,
		EventCalibrationCoachingDue,
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.AuthorType `json:"type"`
	AgentID *string           `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted by services. Recipients lists the
// agent ids the event is addressed to; empty means broadcast to the ticket.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TicketID   string    `json:"ticket_id"`
	Actor      Actor     `json:"actor"`
	Recipients []string  `json:"recipients,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Reference string                `json:"reference"`
	TeamID    *string               `json:"team_id,omitempty"`
	Priority  domain.TicketPriority `json:"priority"`
	Subject   string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAcceptedPayload payload.
type TicketAcceptedPayload struct {
	OwnerID    string    `json:"owner_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// TicketTransferredPayload payload.
type TicketTransferredPayload struct {
	OldOwnerID   string `json:"old_owner_id"`
	NewOwnerID   string `json:"new_owner_id"`
	TransferType string `json:"transfer_type"`
	Reason       string `json:"reason"`
	AuthorizedBy string `json:"authorized_by"`
}

// EnvelopePayload is shared by every envelope event.
type EnvelopePayload struct {
	EnvelopeID    string                `json:"envelope_id"`
	Status        domain.EnvelopeStatus `json:"status"`
	TeamID        *string               `json:"team_id,omitempty"`
	TargetAgentID *string               `json:"target_agent_id,omitempty"`
	AssignedTo    *string               `json:"assigned_to,omitempty"`
	Preview       string                `json:"preview,omitempty"`
}

// AlertFiredPayload payload.
type AlertFiredPayload struct {
	AlertID   string                `json:"alert_id"`
	Condition domain.AlertCondition `json:"condition"`
	Level     int                   `json:"level"`
	Priority  domain.TicketPriority `json:"priority"`
	Reference string                `json:"reference"`
}

// ResolutionPayload is shared by approval and calibration events.
type ResolutionPayload struct {
	ResolutionID string                 `json:"resolution_id"`
	AgentID      string                 `json:"agent_id"`
	Tier         domain.EmpowermentTier `json:"tier"`
	Amount       *float64               `json:"amount,omitempty"`
	Currency     string                 `json:"currency,omitempty"`
	Notes        string                 `json:"notes,omitempty"`
}
