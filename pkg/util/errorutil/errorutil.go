package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the sentinels below
// regardless of message or details.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Rule violation codes.
const (
	CodeAlreadyOwned            = "ALREADY_OWNED"
	CodeAgentInactive           = "AGENT_INACTIVE"
	CodeAgentAtCapacity         = "AGENT_AT_CAPACITY"
	CodeInvalidTransferReason   = "INVALID_TRANSFER_REASON"
	CodeNotOwner                = "NOT_OWNER"
	CodeNotOwned                = "NOT_OWNED"
	CodeTicketStillActive       = "TICKET_STILL_ACTIVE"
	CodeNotAuthorized           = "NOT_AUTHORIZED"
	CodeNotAuthorizedToEscalate = "NOT_AUTHORIZED_TO_ESCALATE"
	CodeInvalidEnvelopeState    = "INVALID_ENVELOPE_STATE"
	CodeAlreadyAccepted         = "ALREADY_ACCEPTED"
	CodeNotAssignedAgent        = "NOT_ASSIGNED_AGENT"
	CodeNotTeamMember           = "NOT_TEAM_MEMBER"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeInvalidResolutionState  = "INVALID_RESOLUTION_STATE"
)

// Sentinels for errors.Is checks.
var (
	ErrAlreadyOwned            = &DomainError{Code: CodeAlreadyOwned}
	ErrAgentInactive           = &DomainError{Code: CodeAgentInactive}
	ErrAgentAtCapacity         = &DomainError{Code: CodeAgentAtCapacity}
	ErrInvalidTransferReason   = &DomainError{Code: CodeInvalidTransferReason}
	ErrNotOwner                = &DomainError{Code: CodeNotOwner}
	ErrNotOwned                = &DomainError{Code: CodeNotOwned}
	ErrTicketStillActive       = &DomainError{Code: CodeTicketStillActive}
	ErrNotAuthorized           = &DomainError{Code: CodeNotAuthorized}
	ErrNotAuthorizedToEscalate = &DomainError{Code: CodeNotAuthorizedToEscalate}
	ErrInvalidEnvelopeState    = &DomainError{Code: CodeInvalidEnvelopeState}
	ErrAlreadyAccepted         = &DomainError{Code: CodeAlreadyAccepted}
	ErrNotAssignedAgent        = &DomainError{Code: CodeNotAssignedAgent}
	ErrNotTeamMember           = &DomainError{Code: CodeNotTeamMember}
	ErrInvalidStatusTransition = &DomainError{Code: CodeInvalidStatusTransition}
	ErrInvalidResolutionState  = &DomainError{Code: CodeInvalidResolutionState}
	ErrNotFound                = &DomainError{Code: "NOT_FOUND"}
	ErrValidation              = &DomainError{Code: "VALIDATION_FAILED"}
	ErrConflict                = &DomainError{Code: "CONFLICT"}
	ErrUnauthorized            = &DomainError{Code: "UNAUTHORIZED"}
	ErrForbidden               = &DomainError{Code: "FORBIDDEN"}
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewAlreadyOwned(ticketID string, ownerID *string) error {
	details := map[string]any{"ticket_id": ticketID}
	if ownerID != nil {
		details["owner_id"] = *ownerID
	}
	return NewDomainError(CodeAlreadyOwned, "ticket already has an owner", http.StatusConflict, details)
}

func NewAgentInactive(agentID string) error {
	return NewDomainError(CodeAgentInactive, "agent is not active", http.StatusConflict, map[string]any{"agent_id": agentID})
}

func NewAgentAtCapacity(agentID string, current, max int) error {
	return NewDomainError(CodeAgentAtCapacity,
		fmt.Sprintf("agent at capacity (%d/%d)", current, max),
		http.StatusConflict,
		map[string]any{"agent_id": agentID, "current_tickets": current, "max_tickets": max})
}

func NewInvalidTransferReason(transferType string) error {
	return NewDomainError(CodeInvalidTransferReason,
		"transfer type must be termination or extended_leave",
		http.StatusBadRequest,
		map[string]any{"transfer_type": transferType})
}

func NewNotOwner(ticketID, agentID string) error {
	return NewDomainError(CodeNotOwner, "only the ticket owner can perform this action", http.StatusForbidden,
		map[string]any{"ticket_id": ticketID, "agent_id": agentID})
}

func NewNotOwned(ticketID string) error {
	return NewDomainError(CodeNotOwned, "ticket has no owner", http.StatusConflict, map[string]any{"ticket_id": ticketID})
}

func NewTicketStillActive(ticketID, status string) error {
	return NewDomainError(CodeTicketStillActive, "ticket must be resolved or closed", http.StatusConflict,
		map[string]any{"ticket_id": ticketID, "status": status})
}

// NewNotAuthorized names the attempted action in the message.
func NewNotAuthorized(action string, details map[string]any) error {
	return NewDomainError(CodeNotAuthorized, fmt.Sprintf("not authorized to %s", action), http.StatusForbidden, details)
}

func NewNotAuthorizedToEscalate(ticketID, agentID string) error {
	return NewDomainError(CodeNotAuthorizedToEscalate,
		"only the ticket owner or an assigned expert can create envelopes",
		http.StatusForbidden,
		map[string]any{"ticket_id": ticketID, "agent_id": agentID})
}

func NewInvalidEnvelopeState(envelopeID, current, expected string) error {
	return NewDomainError(CodeInvalidEnvelopeState,
		fmt.Sprintf("envelope is %s, expected %s", current, expected),
		http.StatusConflict,
		map[string]any{"envelope_id": envelopeID, "status": current})
}

func NewAlreadyAccepted(envelopeID string) error {
	return NewDomainError(CodeAlreadyAccepted, "envelope already accepted", http.StatusConflict,
		map[string]any{"envelope_id": envelopeID})
}

func NewNotAssignedAgent(envelopeID, agentID string) error {
	return NewDomainError(CodeNotAssignedAgent, "envelope is addressed to a different agent", http.StatusForbidden,
		map[string]any{"envelope_id": envelopeID, "agent_id": agentID})
}

func NewNotTeamMember(teamID, agentID string) error {
	return NewDomainError(CodeNotTeamMember, "agent is not a member of the envelope team", http.StatusForbidden,
		map[string]any{"team_id": teamID, "agent_id": agentID})
}

func NewInvalidStatusTransition(from, to string) error {
	return NewDomainError(CodeInvalidStatusTransition,
		fmt.Sprintf("cannot move ticket from %s to %s", from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

func NewInvalidResolutionState(resolutionID, status string) error {
	return NewDomainError(CodeInvalidResolutionState, "resolution is not pending approval", http.StatusConflict,
		map[string]any{"resolution_id": resolutionID, "approval_status": status})
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
