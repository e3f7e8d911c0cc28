package dto

import (
	"time"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// CreateResolutionRequest documents a remedy on an owned ticket.
type CreateResolutionRequest struct {
	WhatWentWrong         string                `json:"what_went_wrong"`
	WhatWentWrongCategory string                `json:"what_went_wrong_category"`
	WhyEligible           string                `json:"why_eligible"`
	WhyEligibleCategory   string                `json:"why_eligible_category"`
	ResolutionType        domain.ResolutionType `json:"resolution_type"`
	ResolutionDetails     string                `json:"resolution_details"`
	Amount                *float64              `json:"amount"`
	Currency              string                `json:"currency"`
}

// ApproveResolutionRequest payload. Approved=false rejects.
type ApproveResolutionRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

// ResolutionResponse representation.
type ResolutionResponse struct {
	ID                    string                   `json:"id"`
	TicketID              string                   `json:"ticket_id"`
	AgentID               string                   `json:"agent_id"`
	WhatWentWrong         string                   `json:"what_went_wrong"`
	WhatWentWrongCategory string                   `json:"what_went_wrong_category,omitempty"`
	WhyEligible           string                   `json:"why_eligible"`
	WhyEligibleCategory   string                   `json:"why_eligible_category,omitempty"`
	ResolutionType        domain.ResolutionType    `json:"resolution_type"`
	ResolutionDetails     string                   `json:"resolution_details,omitempty"`
	Amount                *float64                 `json:"amount,omitempty"`
	Currency              string                   `json:"currency"`
	EmpowermentTier       domain.EmpowermentTier   `json:"empowerment_tier"`
	ApprovalStatus        domain.ApprovalStatus    `json:"approval_status"`
	ApprovedBy            *string                  `json:"approved_by,omitempty"`
	ApprovedAt            *time.Time               `json:"approved_at,omitempty"`
	ApprovalNotes         string                   `json:"approval_notes,omitempty"`
	CalibrationStatus     domain.CalibrationStatus `json:"calibration_status"`
	CreatedAt             time.Time                `json:"created_at"`
}

// ReviewCalibrationRequest payload.
type ReviewCalibrationRequest struct {
	Outcome domain.CalibrationOutcome `json:"outcome"`
	Notes   string                    `json:"notes"`
}

// CalibrationItemResponse representation.
type CalibrationItemResponse struct {
	ID            string                     `json:"id"`
	ResolutionID  string                     `json:"resolution_id"`
	Reason        domain.CalibrationReason   `json:"reason"`
	ReviewStatus  domain.ReviewStatus        `json:"review_status"`
	Outcome       *domain.CalibrationOutcome `json:"outcome,omitempty"`
	ReviewerID    *string                    `json:"reviewer_id,omitempty"`
	ReviewerNotes string                     `json:"reviewer_notes,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	ReviewedAt    *time.Time                 `json:"reviewed_at,omitempty"`
}

// AlertResponse representation.
type AlertResponse struct {
	ID                 string                `json:"id"`
	TicketID           string                `json:"ticket_id"`
	Condition          domain.AlertCondition `json:"condition"`
	Level              int                   `json:"level"`
	TriggeredAt        time.Time             `json:"triggered_at"`
	AcknowledgedAt     *time.Time            `json:"acknowledged_at,omitempty"`
	AcknowledgedBy     *string               `json:"acknowledged_by,omitempty"`
	RecipientsNotified []string              `json:"recipients_notified"`
}
