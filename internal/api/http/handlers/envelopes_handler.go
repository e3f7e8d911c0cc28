package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/dto"
	"github.com/ownerdesk/ticket-engine/internal/service"
)

// EnvelopesHandler exposes collaboration envelopes.
type EnvelopesHandler struct {
	envelopes *service.EnvelopeService
}

// NewEnvelopesHandler constructs handler.
func NewEnvelopesHandler(envelopes *service.EnvelopeService) *EnvelopesHandler {
	return &EnvelopesHandler{envelopes: envelopes}
}

// CreateEnvelope POST /tickets/:id/envelopes.
func (h *EnvelopesHandler) CreateEnvelope(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateEnvelopeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	env, err := h.envelopes.CreateEnvelope(c.UserContext(), service.CreateEnvelopeInput{
		TicketID:      c.Params("id"),
		RequestedBy:   agent.ID,
		Reason:        req.Reason,
		TeamID:        req.TeamID,
		TargetAgentID: req.TargetAgentID,
		ResponseHours: req.ResponseHours,
	})
	if err != nil {
		return err
	}
	return created(c, envelopeResponse(env))
}

// OwnerView GET /tickets/:id/envelopes.
func (h *EnvelopesHandler) OwnerView(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	summaries, err := h.envelopes.OwnerView(c.UserContext(), agent.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, summaries)
}

// ExpertView GET /tickets/:id/expert-view.
func (h *EnvelopesHandler) ExpertView(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	view, err := h.envelopes.ExpertView(c.UserContext(), agent.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.ExpertViewResponse{
		Ticket:             ticketResponse(&view.Ticket),
		MyEnvelopes:        envelopesResponse(view.MyEnvelopes),
		AvailableEnvelopes: envelopesResponse(view.AvailableEnvelopes),
		CanAddEnvelope:     view.CanAddEnvelope,
		IsOwner:            view.IsOwner,
	})
}

// AcceptEnvelope POST /envelopes/:id/accept.
func (h *EnvelopesHandler) AcceptEnvelope(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	env, err := h.envelopes.AcceptEnvelope(c.UserContext(), c.Params("id"), agent.ID)
	if err != nil {
		return err
	}
	return ok(c, envelopeResponse(env))
}

// AddNote POST /envelopes/:id/notes.
func (h *EnvelopesHandler) AddNote(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.EnvelopeNoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.envelopes.AddNote(c.UserContext(), c.Params("id"), agent.ID, req.Content, req.Visibility)
	if err != nil {
		return err
	}
	return created(c, timelineEntryResponse(entry))
}

// CompleteEnvelope POST /envelopes/:id/complete.
func (h *EnvelopesHandler) CompleteEnvelope(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CompleteEnvelopeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	env, err := h.envelopes.CompleteEnvelope(c.UserContext(), c.Params("id"), agent.ID, req.Summary)
	if err != nil {
		return err
	}
	return ok(c, envelopeResponse(env))
}

// MyEnvelopes GET /agents/me/envelopes.
func (h *EnvelopesHandler) MyEnvelopes(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	inbox, err := h.envelopes.AgentEnvelopes(c.UserContext(), agent.ID)
	if err != nil {
		return err
	}
	return ok(c, dto.AgentInboxResponse{
		Assigned:  envelopesResponse(inbox.Assigned),
		Available: envelopesResponse(inbox.Available),
	})
}
