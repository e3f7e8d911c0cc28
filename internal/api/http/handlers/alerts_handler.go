package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/service"
)

// AlertsHandler exposes escalation alerts.
type AlertsHandler struct {
	alerts *service.AlertService
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(alerts *service.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// MyAlerts GET /agents/me/alerts.
func (h *AlertsHandler) MyAlerts(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	alerts, err := h.alerts.PendingAlerts(c.UserContext(), agent.ID)
	if err != nil {
		return err
	}
	return ok(c, alertsResponse(alerts))
}

// Acknowledge POST /alerts/:id/acknowledge.
func (h *AlertsHandler) Acknowledge(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	alert, err := h.alerts.AcknowledgeAlert(c.UserContext(), c.Params("id"), agent.ID)
	if err != nil {
		return err
	}
	return ok(c, alertResponse(alert))
}

// Sweep POST /alerts/check runs one pass over every open ticket.
func (h *AlertsHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.alerts.CheckAllOpenTickets(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, result)
}
