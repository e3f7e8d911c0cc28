package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// calibrationFlags are the case flags that always send a resolution to review.
var calibrationFlags = map[domain.CaseFlagType]bool{
	domain.CaseFlagPhysicalDamage: true,
	domain.CaseFlagSocialMedia:    true,
	domain.CaseFlagLegal:          true,
}

// ResolutionService assigns empowerment tiers and runs approvals.
type ResolutionService struct {
	tickets       repository.TicketRepository
	agents        repository.AgentRepository
	teams         repository.TeamRepository
	resolutions   repository.ResolutionRepository
	calibrations  repository.CalibrationRepository
	caseFlags     repository.CaseFlagRepository
	tx            repository.Transactor
	timeline      *TimelineService
	groupManagers GroupManagerResolver
	notifier      Notifier
	logger        *zap.Logger
	clock         Clock
}

// ResolutionDependencies bundles collaborators for the resolution engine.
type ResolutionDependencies struct {
	TicketRepo      repository.TicketRepository
	AgentRepo       repository.AgentRepository
	TeamRepo        repository.TeamRepository
	ResolutionRepo  repository.ResolutionRepository
	CalibrationRepo repository.CalibrationRepository
	CaseFlagRepo    repository.CaseFlagRepository
	Transactor      repository.Transactor
	Timeline        *TimelineService
	GroupManagers   GroupManagerResolver
	Notifier        Notifier
	Logger          *zap.Logger
	Clock           Clock
}

// CreateResolutionInput documents a remedy offered by the ticket owner.
type CreateResolutionInput struct {
	TicketID              string
	AgentID               string
	WhatWentWrong         string
	WhatWentWrongCategory string
	WhyEligible           string
	WhyEligibleCategory   string
	ResolutionType        domain.ResolutionType
	ResolutionDetails     string
	Amount                *float64
	Currency              string
}

// NewResolutionService constructs the service.
func NewResolutionService(deps ResolutionDependencies) *ResolutionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolutionService{
		tickets:       deps.TicketRepo,
		agents:        deps.AgentRepo,
		teams:         deps.TeamRepo,
		resolutions:   deps.ResolutionRepo,
		calibrations:  deps.CalibrationRepo,
		caseFlags:     deps.CaseFlagRepo,
		tx:            deps.Transactor,
		timeline:      deps.Timeline,
		groupManagers: deps.GroupManagers,
		notifier:      deps.Notifier,
		logger:        logger,
		clock:         deps.Clock,
	}
}

// DetermineTier compares amount with the agent's effective self-approval
// limit and the limits of the agent's first team.
func (s *ResolutionService) DetermineTier(ctx context.Context, agent *domain.Agent, amount *float64) (domain.EmpowermentTier, error) {
	if amount == nil || *amount == 0 {
		return domain.EmpowermentTierAgent, nil
	}
	tier1, tier2 := domain.DefaultTier1Limit, domain.DefaultTier2Limit
	if len(agent.TeamIDs) > 0 {
		team, err := s.teams.GetByID(ctx, agent.TeamIDs[0])
		if err != nil {
			return "", notFound(err, "team", agent.TeamIDs[0])
		}
		tier1, tier2 = team.Tier1Limit, team.Tier2Limit
	}
	effectiveTier1 := tier1
	if agent.EmpowermentLimit < effectiveTier1 {
		effectiveTier1 = agent.EmpowermentLimit
	}

	switch {
	case *amount <= effectiveTier1:
		return domain.EmpowermentTierAgent, nil
	case *amount <= tier2:
		return domain.EmpowermentTierTeamLead, nil
	default:
		return domain.EmpowermentTierManager, nil
	}
}

// CreateResolution records the owner's resolution. Agent-tier resolutions
// are approved immediately; higher tiers wait for approval.
func (s *ResolutionService) CreateResolution(ctx context.Context, input CreateResolutionInput) (*domain.Resolution, error) {
	if err := validateResolutionInput(input); err != nil {
		return nil, err
	}

	var (
		res       *domain.Resolution
		ticket    *domain.Ticket
		approvers []string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetByID(ctx, input.TicketID)
		if err != nil {
			return notFound(err, "ticket", input.TicketID)
		}
		if !ticket.IsOwnedBy(input.AgentID) {
			return apperrors.NewNotOwner(ticket.ID, input.AgentID)
		}
		agent, err := s.agents.GetByID(ctx, input.AgentID)
		if err != nil {
			return notFound(err, "agent", input.AgentID)
		}
		tier, err := s.DetermineTier(ctx, agent, input.Amount)
		if err != nil {
			return err
		}

		now := s.clock.now()
		currency := strings.ToUpper(strings.TrimSpace(input.Currency))
		if currency == "" {
			currency = domain.DefaultCurrency
		}
		res = &domain.Resolution{
			ID:                    uuid.NewString(),
			TicketID:              ticket.ID,
			AgentID:               agent.ID,
			WhatWentWrong:         strings.TrimSpace(input.WhatWentWrong),
			WhatWentWrongCategory: input.WhatWentWrongCategory,
			WhyEligible:           strings.TrimSpace(input.WhyEligible),
			WhyEligibleCategory:   input.WhyEligibleCategory,
			ResolutionType:        input.ResolutionType,
			ResolutionDetails:     strings.TrimSpace(input.ResolutionDetails),
			Amount:                input.Amount,
			Currency:              currency,
			EmpowermentTier:       tier,
			ApprovalStatus:        domain.ApprovalStatusPending,
			CalibrationStatus:     domain.CalibrationStatusNotRequired,
			CreatedAt:             now,
		}
		if tier == domain.EmpowermentTierAgent {
			res.ApprovalStatus = domain.ApprovalStatusApproved
			res.ApprovedBy = &agent.ID
			res.ApprovedAt = &now
		}

		reasons, err := s.calibrationReasons(ctx, ticket.ID, tier)
		if err != nil {
			return err
		}
		if len(reasons) > 0 {
			res.CalibrationStatus = domain.CalibrationStatusPending
		}
		if err := s.resolutions.Create(ctx, res); err != nil {
			return err
		}
		for _, reason := range reasons {
			if _, err := s.calibrations.Enqueue(ctx, &domain.CalibrationItem{
				ID:           uuid.NewString(),
				ResolutionID: res.ID,
				Reason:       reason,
				ReviewStatus: domain.ReviewStatusPending,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}

		if err := s.timeline.Append(ctx, &domain.TimelineEntry{
			TicketID:   ticket.ID,
			Type:       domain.TimelineResolution,
			Visibility: domain.VisibilityInternal,
			AuthorID:   &agent.ID,
			AuthorType: domain.AuthorTypeAgent,
			Subject:    resolutionSubject(res),
			Content:    res.ResolutionDetails,
		}); err != nil {
			return err
		}

		if tier != domain.EmpowermentTierAgent {
			approvers, err = s.approversFor(ctx, ticket, agent, tier)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.ApprovalStatus == domain.ApprovalStatusPending {
		if len(approvers) == 0 {
			s.logger.Warn("no approver found for resolution",
				zap.String("resolution_id", res.ID),
				zap.String("tier", string(res.EmpowermentTier)))
		}
		s.notifier.RequestApproval(ctx, res, approvers)
	}
	return res, nil
}

func validateResolutionInput(input CreateResolutionInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.WhatWentWrong) == "" {
		details["what_went_wrong"] = "required"
	}
	if strings.TrimSpace(input.WhyEligible) == "" {
		details["why_eligible"] = "required"
	}
	if !input.ResolutionType.Valid() {
		details["resolution_type"] = "unknown type"
	}
	if input.Amount != nil && *input.Amount < 0 {
		details["amount"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid resolution", details)
	}
	return nil
}

// calibrationReasons lists the review queues a new resolution enters: tier3
// for manager tier, plus one flagged_<type> for the first qualifying flag.
func (s *ResolutionService) calibrationReasons(ctx context.Context, ticketID string, tier domain.EmpowermentTier) ([]domain.CalibrationReason, error) {
	var reasons []domain.CalibrationReason
	if tier == domain.EmpowermentTierManager {
		reasons = append(reasons, domain.CalibrationReasonTier3)
	}
	flags, err := s.caseFlags.ListActive(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	for _, flag := range flags {
		if calibrationFlags[flag.Type] {
			reasons = append(reasons, domain.FlaggedCalibrationReason(flag.Type))
			break
		}
	}
	return reasons, nil
}

func resolutionSubject(res *domain.Resolution) string {
	amount := ""
	if res.Amount != nil {
		amount = fmt.Sprintf(" %.2f %s", *res.Amount, res.Currency)
	}
	if res.ApprovalStatus == domain.ApprovalStatusApproved {
		return fmt.Sprintf("Resolution %s%s approved", res.ResolutionType, amount)
	}
	return fmt.Sprintf("Resolution %s%s pending %s approval", res.ResolutionType, amount, res.EmpowermentTier)
}

// approversFor picks team supervisors for team_lead tier and group managers
// for manager tier.
func (s *ResolutionService) approversFor(ctx context.Context, ticket *domain.Ticket, agent *domain.Agent, tier domain.EmpowermentTier) ([]string, error) {
	if tier == domain.EmpowermentTierManager {
		if s.groupManagers == nil {
			return nil, nil
		}
		return s.groupManagers.GroupManagers(ctx, ticket)
	}
	var ids []string
	for _, teamID := range agent.TeamIDs {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return nil, notFound(err, "team", teamID)
		}
		if team.SupervisorID != nil {
			ids = append(ids, *team.SupervisorID)
		}
	}
	return without(uniqueIDs(ids...), agent.ID), nil
}

// ApproveResolution records an approval decision on a pending resolution.
func (s *ResolutionService) ApproveResolution(ctx context.Context, resolutionID, approverID string, approved bool, notes string) (*domain.Resolution, error) {
	notes = strings.TrimSpace(notes)
	var res *domain.Resolution
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.resolutions.GetByID(ctx, resolutionID)
		if err != nil {
			return notFound(err, "resolution", resolutionID)
		}
		if res.ApprovalStatus != domain.ApprovalStatusPending {
			return apperrors.NewInvalidResolutionState(res.ID, string(res.ApprovalStatus))
		}
		approver, err := s.agents.GetByID(ctx, approverID)
		if err != nil {
			return notFound(err, "agent", approverID)
		}
		if !canApprove(approver, res) {
			return apperrors.NewNotAuthorized("approve resolution", map[string]any{
				"resolution_id": res.ID,
				"tier":          res.EmpowermentTier,
				"agent_id":      approver.ID,
			})
		}

		now := s.clock.now()
		res.ApprovedBy = &approverID
		res.ApprovedAt = &now
		res.ApprovalNotes = notes
		subject := "Resolution approved"
		if approved {
			res.ApprovalStatus = domain.ApprovalStatusApproved
		} else {
			res.ApprovalStatus = domain.ApprovalStatusRejected
			res.CalibrationStatus = domain.CalibrationStatusRejected
			subject = "Resolution rejected"
		}
		if err := s.resolutions.Update(ctx, res); err != nil {
			return err
		}
		return s.timeline.Append(ctx, &domain.TimelineEntry{
			TicketID:   res.TicketID,
			Type:       domain.TimelineResolution,
			Visibility: domain.VisibilityInternal,
			AuthorID:   &approverID,
			AuthorType: domain.AuthorTypeAgent,
			Subject:    subject,
			Content:    notes,
		})
	})
	if err != nil {
		return nil, err
	}

	if approved {
		s.notifier.NotifyResolutionApproved(ctx, res, approverID)
	} else {
		s.notifier.NotifyResolutionRejected(ctx, res, approverID, notes)
	}
	return res, nil
}

// canApprove: team leads decide team_lead tier, managers and admins decide
// either tier. Nobody approves their own resolution.
func canApprove(approver *domain.Agent, res *domain.Resolution) bool {
	if approver.ID == res.AgentID || !approver.IsActive {
		return false
	}
	switch approver.Role {
	case domain.AgentRoleManager, domain.AgentRoleAdmin:
		return true
	case domain.AgentRoleTeamLead:
		return res.EmpowermentTier == domain.EmpowermentTierTeamLead
	}
	return false
}

// PendingApprovals lists the resolutions approverID is expected to decide.
func (s *ResolutionService) PendingApprovals(ctx context.Context, approverID string) ([]domain.Resolution, error) {
	approver, err := s.agents.GetByID(ctx, approverID)
	if err != nil {
		return nil, notFound(err, "agent", approverID)
	}
	pending := domain.ApprovalStatusPending
	filter := repository.ResolutionFilter{ApprovalStatus: &pending}

	switch approver.Role {
	case domain.AgentRoleTeamLead:
		teams, err := s.teams.ListBySupervisor(ctx, approver.ID)
		if err != nil {
			return nil, err
		}
		var agentIDs []string
		for _, team := range teams {
			members, err := s.agents.ListByTeam(ctx, team.ID)
			if err != nil {
				return nil, err
			}
			for _, m := range members {
				agentIDs = append(agentIDs, m.ID)
			}
		}
		agentIDs = without(uniqueIDs(agentIDs...), approver.ID)
		if len(agentIDs) == 0 {
			return []domain.Resolution{}, nil
		}
		filter.Tiers = []domain.EmpowermentTier{domain.EmpowermentTierTeamLead}
		filter.AgentIDs = agentIDs
	case domain.AgentRoleManager, domain.AgentRoleAdmin:
		filter.Tiers = []domain.EmpowermentTier{domain.EmpowermentTierManager}
	default:
		return nil, apperrors.NewNotAuthorized("view pending approvals", map[string]any{"agent_id": approver.ID})
	}

	list, err := s.resolutions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Resolution{}
	}
	return list, nil
}
