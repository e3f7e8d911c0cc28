package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/dto"
	"github.com/ownerdesk/ticket-engine/internal/auth"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/service"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

func currentAgent(c *fiber.Ctx) (*domain.Agent, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return principal.Agent, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func parseTimeQuery(c *fiber.Ctx, key string, fallback time.Time) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.NewValidationError("invalid time", map[string]any{key: v})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                 t.ID,
		Reference:          t.Reference,
		Subject:            t.Subject,
		Description:        t.Description,
		Type:               t.Type,
		Priority:           t.Priority,
		Status:             t.Status,
		OwnerID:            t.OwnerID,
		OwnerAcceptedAt:    t.OwnerAcceptedAt,
		RequesterID:        t.RequesterID,
		CompanyID:          t.CompanyID,
		TeamID:             t.TeamID,
		SLABreachAt:        t.SLABreachAt,
		FirstResponseAt:    t.FirstResponseAt,
		HasActiveEnvelopes: t.HasActiveEnvelopes,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		ResolvedAt:         t.ResolvedAt,
		ClosedAt:           t.ClosedAt,
	}
}

func timelineEntryResponse(e *domain.TimelineEntry) dto.TimelineEntryResponse {
	return dto.TimelineEntryResponse{
		ID:         e.ID,
		EnvelopeID: e.EnvelopeID,
		Type:       e.Type,
		Visibility: e.Visibility,
		AuthorID:   e.AuthorID,
		AuthorType: e.AuthorType,
		Subject:    e.Subject,
		Content:    e.Content,
		CreatedAt:  e.CreatedAt,
	}
}

func timelineResponse(entries []domain.TimelineEntry) []dto.TimelineEntryResponse {
	out := make([]dto.TimelineEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, timelineEntryResponse(&entries[i]))
	}
	return out
}

func flagResponse(f *domain.CaseFlag) dto.CaseFlagResponse {
	return dto.CaseFlagResponse{
		ID:        f.ID,
		TicketID:  f.TicketID,
		Type:      f.Type,
		Reason:    f.Reason,
		AddedBy:   f.AddedBy,
		CreatedAt: f.CreatedAt,
	}
}

func scoreResponse(s *service.PriorityScore) dto.PriorityScoreResponse {
	return dto.PriorityScoreResponse{
		TicketID:     s.TicketID,
		Base:         s.Base,
		Multipliers:  s.Multipliers,
		Score:        s.Score,
		CalculatedAt: s.CalculatedAt,
	}
}

func scoredResponse(items []service.ScoredTicket) []dto.ScoredTicketResponse {
	out := make([]dto.ScoredTicketResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.ScoredTicketResponse{
			Ticket: ticketResponse(&items[i].Ticket),
			Score:  scoreResponse(&items[i].Score),
		})
	}
	return out
}

func envelopeResponse(e *domain.Envelope) dto.EnvelopeResponse {
	return dto.EnvelopeResponse{
		ID:            e.ID,
		TicketID:      e.TicketID,
		RequestedBy:   e.RequestedBy,
		TeamID:        e.TeamID,
		TargetAgentID: e.TargetAgentID,
		AssignedTo:    e.AssignedTo,
		Status:        e.Status,
		Reason:        e.Reason,
		Summary:       e.Summary,
		ResponseDueAt: e.ResponseDueAt,
		CreatedAt:     e.CreatedAt,
		AcceptedAt:    e.AcceptedAt,
		CompletedAt:   e.CompletedAt,
	}
}

func envelopesResponse(envs []domain.Envelope) []dto.EnvelopeResponse {
	out := make([]dto.EnvelopeResponse, 0, len(envs))
	for i := range envs {
		out = append(out, envelopeResponse(&envs[i]))
	}
	return out
}

func resolutionResponse(r *domain.Resolution) dto.ResolutionResponse {
	return dto.ResolutionResponse{
		ID:                    r.ID,
		TicketID:              r.TicketID,
		AgentID:               r.AgentID,
		WhatWentWrong:         r.WhatWentWrong,
		WhatWentWrongCategory: r.WhatWentWrongCategory,
		WhyEligible:           r.WhyEligible,
		WhyEligibleCategory:   r.WhyEligibleCategory,
		ResolutionType:        r.ResolutionType,
		ResolutionDetails:     r.ResolutionDetails,
		Amount:                r.Amount,
		Currency:              r.Currency,
		EmpowermentTier:       r.EmpowermentTier,
		ApprovalStatus:        r.ApprovalStatus,
		ApprovedBy:            r.ApprovedBy,
		ApprovedAt:            r.ApprovedAt,
		ApprovalNotes:         r.ApprovalNotes,
		CalibrationStatus:     r.CalibrationStatus,
		CreatedAt:             r.CreatedAt,
	}
}

func calibrationItemResponse(item *domain.CalibrationItem) dto.CalibrationItemResponse {
	return dto.CalibrationItemResponse{
		ID:            item.ID,
		ResolutionID:  item.ResolutionID,
		Reason:        item.Reason,
		ReviewStatus:  item.ReviewStatus,
		Outcome:       item.Outcome,
		ReviewerID:    item.ReviewerID,
		ReviewerNotes: item.ReviewerNotes,
		CreatedAt:     item.CreatedAt,
		ReviewedAt:    item.ReviewedAt,
	}
}

func alertResponse(a *domain.Alert) dto.AlertResponse {
	recipients := a.RecipientsNotified
	if recipients == nil {
		recipients = []string{}
	}
	return dto.AlertResponse{
		ID:                 a.ID,
		TicketID:           a.TicketID,
		Condition:          a.Condition,
		Level:              a.Level,
		TriggeredAt:        a.TriggeredAt,
		AcknowledgedAt:     a.AcknowledgedAt,
		AcknowledgedBy:     a.AcknowledgedBy,
		RecipientsNotified: recipients,
	}
}

func alertsResponse(alerts []domain.Alert) []dto.AlertResponse {
	out := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, alertResponse(&alerts[i]))
	}
	return out
}

func agentResponse(a *domain.Agent) dto.AgentResponse {
	teamIDs := a.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}
	return dto.AgentResponse{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		Role:             a.Role,
		TeamIDs:          teamIDs,
		MaxTickets:       a.MaxTickets,
		CurrentTickets:   a.CurrentTickets,
		EmpowermentLimit: a.EmpowermentLimit,
		IsActive:         a.IsActive,
		CreatedAt:        a.CreatedAt,
	}
}

func teamResponse(t *domain.Team) dto.TeamResponse {
	return dto.TeamResponse{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Tier1Limit:   t.Tier1Limit,
		Tier2Limit:   t.Tier2Limit,
		SupervisorID: t.SupervisorID,
		ManagerID:    t.ManagerID,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt,
	}
}
