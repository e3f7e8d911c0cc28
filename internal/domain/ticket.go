package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusWaitingInternal TicketStatus = "waiting_internal"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
)

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:             {TicketStatusInProgress},
	TicketStatusInProgress:      {TicketStatusWaitingCustomer, TicketStatusWaitingInternal, TicketStatusResolved},
	TicketStatusWaitingCustomer: {TicketStatusInProgress, TicketStatusWaitingInternal, TicketStatusResolved},
	TicketStatusWaitingInternal: {TicketStatusInProgress, TicketStatusWaitingInternal, TicketStatusResolved},
	TicketStatusResolved:        {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:          nil,
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen is true for every status except resolved and closed.
func (s TicketStatus) IsOpen() bool {
	return s != TicketStatusResolved && s != TicketStatusClosed
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	_, ok := ticketTransitions[s]
	return ok
}

// OpenTicketStatuses lists statuses considered open for queues and sweeps.
func OpenTicketStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusNew,
		TicketStatusInProgress,
		TicketStatusWaitingCustomer,
		TicketStatusWaitingInternal,
	}
}

// TicketPriority is the static urgency rank.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "critical"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityLow      TicketPriority = "low"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// TicketType categorizes the request.
type TicketType string

const (
	TicketTypeIncident TicketType = "incident"
	TicketTypeRequest  TicketType = "request"
	TicketTypeChange   TicketType = "change"
	TicketTypeProblem  TicketType = "problem"
)

// Ticket is the aggregate for support requests. OwnerID is write-once outside
// of the emergency transfer path. OwnerReleasedAt is set while the owner's
// capacity slot for this ticket is given back.
type Ticket struct {
	ID                 string
	Reference          string
	Subject            string
	Description        string
	Type               TicketType
	Priority           TicketPriority
	Status             TicketStatus
	OwnerID            *string
	OwnerAcceptedAt    *time.Time
	OwnerReleasedAt    *time.Time
	RequesterID        string
	CompanyID          *string
	TeamID             *string
	SLABreachAt        *time.Time
	FirstResponseAt    *time.Time
	HasActiveEnvelopes bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ResolvedAt         *time.Time
	ClosedAt           *time.Time
}

// IsOwnedBy reports whether agentID currently owns the ticket.
func (t *Ticket) IsOwnedBy(agentID string) bool {
	return t != nil && t.OwnerID != nil && *t.OwnerID == agentID
}
