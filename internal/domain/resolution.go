package domain

import "time"

// ResolutionType is the remedy offered to the customer.
type ResolutionType string

const (
	ResolutionTypeRefund      ResolutionType = "refund"
	ResolutionTypeCredit      ResolutionType = "credit"
	ResolutionTypeReplacement ResolutionType = "replacement"
	ResolutionTypeRepair      ResolutionType = "repair"
	ResolutionTypeInformation ResolutionType = "information"
	ResolutionTypeWorkaround  ResolutionType = "workaround"
	ResolutionTypeNoAction    ResolutionType = "no_action"
)

// Valid reports whether t is a known resolution type.
func (t ResolutionType) Valid() bool {
	switch t {
	case ResolutionTypeRefund, ResolutionTypeCredit, ResolutionTypeReplacement, ResolutionTypeRepair,
		ResolutionTypeInformation, ResolutionTypeWorkaround, ResolutionTypeNoAction:
		return true
	}
	return false
}

// EmpowermentTier is the approval level a resolution needs.
type EmpowermentTier string

const (
	EmpowermentTierAgent    EmpowermentTier = "agent"
	EmpowermentTierTeamLead EmpowermentTier = "team_lead"
	EmpowermentTierManager  EmpowermentTier = "manager"
)

// ApprovalStatus tracks the approval decision.
type ApprovalStatus string

const (
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// CalibrationStatus tracks calibration review of a resolution.
type CalibrationStatus string

const (
	CalibrationStatusNotRequired    CalibrationStatus = "not_required"
	CalibrationStatusPending        CalibrationStatus = "pending"
	CalibrationStatusRejected       CalibrationStatus = "rejected"
	CalibrationStatusUpheld         CalibrationStatus = "upheld"
	CalibrationStatusRevised        CalibrationStatus = "revised"
	CalibrationStatusCoachingNeeded CalibrationStatus = "coaching_needed"
)

const DefaultCurrency = "EUR"

// Resolution documents how a ticket was made right for the customer.
type Resolution struct {
	ID                    string
	TicketID              string
	AgentID               string
	WhatWentWrong         string
	WhatWentWrongCategory string
	WhyEligible           string
	WhyEligibleCategory   string
	ResolutionType        ResolutionType
	ResolutionDetails     string
	Amount                *float64
	Currency              string
	EmpowermentTier       EmpowermentTier
	ApprovalStatus        ApprovalStatus
	ApprovedBy            *string
	ApprovedAt            *time.Time
	ApprovalNotes         string
	CalibrationStatus     CalibrationStatus
	CreatedAt             time.Time
}
