package domain

import "time"

// EnvelopeStatus is the parallel-assist lifecycle.
type EnvelopeStatus string

const (
	EnvelopeStatusPending   EnvelopeStatus = "pending"
	EnvelopeStatusActive    EnvelopeStatus = "active"
	EnvelopeStatusCompleted EnvelopeStatus = "completed"
)

// CanTransitionTo allows only pending->active and active->completed.
func (s EnvelopeStatus) CanTransitionTo(next EnvelopeStatus) bool {
	switch s {
	case EnvelopeStatusPending:
		return next == EnvelopeStatusActive
	case EnvelopeStatusActive:
		return next == EnvelopeStatusCompleted
	}
	return false
}

// IsLive reports whether the envelope still holds the ticket in waiting_internal.
func (s EnvelopeStatus) IsLive() bool {
	return s == EnvelopeStatusPending || s == EnvelopeStatusActive
}

// Envelope is a side-channel through which an expert helps on an owned
// ticket. Exactly one of TeamID and TargetAgentID is set; AssignedTo stays
// nil until acceptance.
type Envelope struct {
	ID            string
	TicketID      string
	RequestedBy   string
	TeamID        *string
	TargetAgentID *string
	AssignedTo    *string
	Status        EnvelopeStatus
	Reason        string
	Summary       *string
	ResponseDueAt time.Time
	CreatedAt     time.Time
	AcceptedAt    *time.Time
	CompletedAt   *time.Time
}

// IsAssignedTo reports whether agentID accepted the envelope.
func (e *Envelope) IsAssignedTo(agentID string) bool {
	return e != nil && e.AssignedTo != nil && *e.AssignedTo == agentID
}
