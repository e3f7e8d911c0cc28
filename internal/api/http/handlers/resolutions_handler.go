package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/dto"
	"github.com/ownerdesk/ticket-engine/internal/service"
)

// ResolutionsHandler exposes empowerment resolutions and approvals.
type ResolutionsHandler struct {
	resolutions *service.ResolutionService
}

// NewResolutionsHandler constructs handler.
func NewResolutionsHandler(resolutions *service.ResolutionService) *ResolutionsHandler {
	return &ResolutionsHandler{resolutions: resolutions}
}

// CreateResolution POST /tickets/:id/resolutions.
func (h *ResolutionsHandler) CreateResolution(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateResolutionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.resolutions.CreateResolution(c.UserContext(), service.CreateResolutionInput{
		TicketID:              c.Params("id"),
		AgentID:               agent.ID,
		WhatWentWrong:         req.WhatWentWrong,
		WhatWentWrongCategory: req.WhatWentWrongCategory,
		WhyEligible:           req.WhyEligible,
		WhyEligibleCategory:   req.WhyEligibleCategory,
		ResolutionType:        req.ResolutionType,
		ResolutionDetails:     req.ResolutionDetails,
		Amount:                req.Amount,
		Currency:              req.Currency,
	})
	if err != nil {
		return err
	}
	return created(c, resolutionResponse(res))
}

// ApproveResolution POST /resolutions/:id/approve.
func (h *ResolutionsHandler) ApproveResolution(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ApproveResolutionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.resolutions.ApproveResolution(c.UserContext(), c.Params("id"), agent.ID, req.Approved, req.Notes)
	if err != nil {
		return err
	}
	return ok(c, resolutionResponse(res))
}

// PendingApprovals GET /agents/me/pending-approvals.
func (h *ResolutionsHandler) PendingApprovals(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	pending, err := h.resolutions.PendingApprovals(c.UserContext(), agent.ID)
	if err != nil {
		return err
	}
	out := make([]dto.ResolutionResponse, 0, len(pending))
	for i := range pending {
		out = append(out, resolutionResponse(&pending[i]))
	}
	return ok(c, out)
}
