package service

import (
	"context"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/events"
)

// Notifier addresses notifications to agents. Delivery is the concern of
// whatever subscribes to the underlying events.
type Notifier interface {
	SendAlert(ctx context.Context, recipientID string, ticket *domain.Ticket, alert *domain.Alert)
	NotifyEnvelopeCreated(ctx context.Context, envelope *domain.Envelope, recipients []string)
	NotifyEnvelopeAccepted(ctx context.Context, envelope *domain.Envelope)
	NotifyEnvelopeUpdate(ctx context.Context, envelope *domain.Envelope, authorID, recipientID, preview string)
	NotifyEnvelopeCompleted(ctx context.Context, envelope *domain.Envelope, completedBy string, recipients []string)
	RequestApproval(ctx context.Context, resolution *domain.Resolution, approvers []string)
	NotifyResolutionApproved(ctx context.Context, resolution *domain.Resolution, approverID string)
	NotifyResolutionRejected(ctx context.Context, resolution *domain.Resolution, approverID, notes string)
	RequestCoaching(ctx context.Context, resolution *domain.Resolution, reviewerID string, recipients []string)
}

type eventNotifier struct {
	publisher
}

// NewEventNotifier publishes one event per notification on dispatcher.
func NewEventNotifier(dispatcher events.Dispatcher, clock Clock) Notifier {
	return &eventNotifier{publisher{dispatcher: dispatcher, clock: clock}}
}

func (n *eventNotifier) SendAlert(ctx context.Context, recipientID string, ticket *domain.Ticket, alert *domain.Alert) {
	n.publish(ctx, events.Event{
		Type:       events.EventAlertFired,
		TicketID:   ticket.ID,
		Actor:      systemActor(),
		Recipients: []string{recipientID},
		Payload: events.AlertFiredPayload{
			AlertID:   alert.ID,
			Condition: alert.Condition,
			Level:     alert.Level,
			Priority:  ticket.Priority,
			Reference: ticket.Reference,
		},
	})
}

func (n *eventNotifier) NotifyEnvelopeCreated(ctx context.Context, env *domain.Envelope, recipients []string) {
	n.publishEnvelope(ctx, events.EventEnvelopeCreated, env, env.RequestedBy, recipients, env.Reason)
}

func (n *eventNotifier) NotifyEnvelopeAccepted(ctx context.Context, env *domain.Envelope) {
	var actor string
	if env.AssignedTo != nil {
		actor = *env.AssignedTo
	}
	n.publishEnvelope(ctx, events.EventEnvelopeAccepted, env, actor, []string{env.RequestedBy}, "")
}

func (n *eventNotifier) NotifyEnvelopeUpdate(ctx context.Context, env *domain.Envelope, authorID, recipientID, preview string) {
	n.publishEnvelope(ctx, events.EventEnvelopeNoteAdded, env, authorID, []string{recipientID}, preview)
}

func (n *eventNotifier) NotifyEnvelopeCompleted(ctx context.Context, env *domain.Envelope, completedBy string, recipients []string) {
	var summary string
	if env.Summary != nil {
		summary = stringPreview(*env.Summary, 140)
	}
	n.publishEnvelope(ctx, events.EventEnvelopeCompleted, env, completedBy, recipients, summary)
}

func (n *eventNotifier) publishEnvelope(ctx context.Context, t events.EventType, env *domain.Envelope, actorID string, recipients []string, preview string) {
	if len(recipients) == 0 {
		return
	}
	n.publish(ctx, events.Event{
		Type:       t,
		TicketID:   env.TicketID,
		Actor:      agentActor(actorID),
		Recipients: recipients,
		Payload: events.EnvelopePayload{
			EnvelopeID:    env.ID,
			Status:        env.Status,
			TeamID:        env.TeamID,
			TargetAgentID: env.TargetAgentID,
			AssignedTo:    env.AssignedTo,
			Preview:       preview,
		},
	})
}

func (n *eventNotifier) RequestApproval(ctx context.Context, res *domain.Resolution, approvers []string) {
	n.publishResolution(ctx, events.EventApprovalRequested, res, res.AgentID, approvers, "")
}

func (n *eventNotifier) NotifyResolutionApproved(ctx context.Context, res *domain.Resolution, approverID string) {
	n.publishResolution(ctx, events.EventResolutionApproved, res, approverID, []string{res.AgentID}, res.ApprovalNotes)
}

func (n *eventNotifier) NotifyResolutionRejected(ctx context.Context, res *domain.Resolution, approverID, notes string) {
	n.publishResolution(ctx, events.EventResolutionRejected, res, approverID, []string{res.AgentID}, notes)
}

func (n *eventNotifier) RequestCoaching(ctx context.Context, res *domain.Resolution, reviewerID string, recipients []string) {
	n.publishResolution(ctx, events.EventCalibrationCoachingDue, res, reviewerID, recipients, "")
}

func (n *eventNotifier) publishResolution(ctx context.Context, t events.EventType, res *domain.Resolution, actorID string, recipients []string, notes string) {
	if len(recipients) == 0 {
		return
	}
	n.publish(ctx, events.Event{
		Type:       t,
		TicketID:   res.TicketID,
		Actor:      agentActor(actorID),
		Recipients: recipients,
		Payload: events.ResolutionPayload{
			ResolutionID: res.ID,
			AgentID:      res.AgentID,
			Tier:         res.EmpowermentTier,
			Amount:       res.Amount,
			Currency:     res.Currency,
			Notes:        notes,
		},
	})
}
