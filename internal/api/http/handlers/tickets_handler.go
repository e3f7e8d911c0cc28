package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/dto"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/service"
)

// TicketsHandler exposes ticket lifecycle, ownership and scoring endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	ownership *service.OwnershipService
	timeline  *service.TimelineService
	priority  *service.PriorityService
	alerts    *service.AlertService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, ownership *service.OwnershipService, timeline *service.TimelineService, priority *service.PriorityService, alerts *service.AlertService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, ownership: ownership, timeline: timeline, priority: priority, alerts: alerts}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), service.CreateTicketInput{
		Subject:     req.Subject,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		RequesterID: req.RequesterID,
		CompanyID:   req.CompanyID,
		TeamID:      req.TeamID,
	})
	if err != nil {
		return err
	}
	return created(c, ticketResponse(ticket))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, ticketResponse(ticket))
}

// AcceptTicket POST /tickets/:id/accept.
func (h *TicketsHandler) AcceptTicket(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	ticket, err := h.ownership.AcceptTicket(c.UserContext(), c.Params("id"), agent.ID)
	if err != nil {
		return err
	}
	return ok(c, ticketResponse(ticket))
}

// TransferTicket POST /tickets/:id/transfer.
func (h *TicketsHandler) TransferTicket(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.TransferTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.ownership.TransferOwnership(c.UserContext(), service.TransferInput{
		TicketID:     c.Params("id"),
		NewOwnerID:   req.NewOwnerID,
		Reason:       req.Reason,
		AuthorizedBy: agent.ID,
		TransferType: req.TransferType,
	})
	if err != nil {
		return err
	}
	return ok(c, ticketResponse(ticket))
}

// ReleaseTicket POST /tickets/:id/release.
func (h *TicketsHandler) ReleaseTicket(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	if err := h.ownership.ReleaseOwnership(c.UserContext(), c.Params("id"), agent.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.ChangeStatus(c.UserContext(), c.Params("id"), agent.ID, req.Status)
	if err != nil {
		return err
	}
	return ok(c, ticketResponse(ticket))
}

// AddReply POST /tickets/:id/replies.
func (h *TicketsHandler) AddReply(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.tickets.AddReply(c.UserContext(), c.Params("id"), agent.ID, req.Subject, req.Body)
	if err != nil {
		return err
	}
	return created(c, timelineEntryResponse(entry))
}

// AddFlag POST /tickets/:id/flags.
func (h *TicketsHandler) AddFlag(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.AddFlagRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	flag, err := h.tickets.AddFlag(c.UserContext(), c.Params("id"), agent.ID, req.Type, req.Reason)
	if err != nil {
		return err
	}
	return created(c, flagResponse(flag))
}

// ClearFlag DELETE /tickets/:id/flags/:flagID.
func (h *TicketsHandler) ClearFlag(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	if err := h.tickets.ClearFlag(c.UserContext(), c.Params("id"), c.Params("flagID"), agent.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Timeline GET /tickets/:id/timeline. ?view=customer renders what the
// requester sees; ?envelope_id scopes the expert's view.
func (h *TicketsHandler) Timeline(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	ticketID := c.Params("id")

	var entries []domain.TimelineEntry
	if strings.EqualFold(c.Query("view"), "customer") {
		ticket, err := h.tickets.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		entries, err = h.timeline.CustomerView(ctx, ticket.ID, ticket.RequesterID)
		if err != nil {
			return err
		}
		return ok(c, timelineResponse(entries))
	}

	var envelopeID *string
	if v := c.Query("envelope_id"); v != "" {
		envelopeID = &v
	}
	entries, err = h.timeline.Timeline(ctx, ticketID, agent.ID, envelopeID)
	if err != nil {
		return err
	}
	return ok(c, timelineResponse(entries))
}

// Score GET /tickets/:id/score.
func (h *TicketsHandler) Score(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	score, err := h.priority.CalculateScore(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return ok(c, scoreResponse(score))
}

// CheckAlerts POST /tickets/:id/alerts/check.
func (h *TicketsHandler) CheckAlerts(c *fiber.Ctx) error {
	fired, err := h.alerts.CheckTicketAlerts(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, alertsResponse(fired))
}
