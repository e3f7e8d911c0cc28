package domain

import "time"

// TimelineEntryType classifies an entry in a ticket's activity log.
type TimelineEntryType string

const (
	TimelineEmailInbound      TimelineEntryType = "email_inbound"
	TimelineEmailOutbound     TimelineEntryType = "email_outbound"
	TimelineNote              TimelineEntryType = "note"
	TimelineSystem            TimelineEntryType = "system"
	TimelineEnvelopeCreated   TimelineEntryType = "envelope_created"
	TimelineEnvelopeCompleted TimelineEntryType = "envelope_completed"
	TimelineStatusChange      TimelineEntryType = "status_change"
	TimelineResolution        TimelineEntryType = "resolution"
)

// AuthorType identifies who wrote an entry.
type AuthorType string

const (
	AuthorTypeAgent    AuthorType = "agent"
	AuthorTypeSystem   AuthorType = "system"
	AuthorTypeCustomer AuthorType = "customer"
)

// TimelineEntry is an append-only record, optionally scoped to an envelope.
type TimelineEntry struct {
	ID         string
	TicketID   string
	EnvelopeID *string
	Type       TimelineEntryType
	Visibility Visibility
	AuthorID   *string
	AuthorType AuthorType
	Subject    string
	Content    string
	CreatedAt  time.Time
}
