package service

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

const defaultSamplePct = 5.0

// CalibrationService builds the review queue and records review outcomes.
type CalibrationService struct {
	resolutions  repository.ResolutionRepository
	calibrations repository.CalibrationRepository
	agents       repository.AgentRepository
	teams        repository.TeamRepository
	notifier     Notifier
	logger       *zap.Logger
	clock        Clock
	random       func() float64
	samplePct    float64
}

// CalibrationDependencies bundles collaborators for calibration.
type CalibrationDependencies struct {
	ResolutionRepo  repository.ResolutionRepository
	CalibrationRepo repository.CalibrationRepository
	AgentRepo       repository.AgentRepository
	TeamRepo        repository.TeamRepository
	Notifier        Notifier
	Logger          *zap.Logger
	Clock           Clock
	// Random returns a value in [0,1); defaults to math/rand.
	Random    func() float64
	SamplePct float64
}

// ReasonStats aggregates calibration results for one reason.
type ReasonStats struct {
	Total          int     `json:"total"`
	Reviewed       int     `json:"reviewed"`
	Upheld         int     `json:"upheld"`
	Revised        int     `json:"revised"`
	CoachingNeeded int     `json:"coaching_needed"`
	UpholdRate     float64 `json:"uphold_rate"`
}

// CalibrationReport summarizes a review window.
type CalibrationReport struct {
	From     time.Time              `json:"from"`
	To       time.Time              `json:"to"`
	Overall  ReasonStats            `json:"overall"`
	ByReason map[string]ReasonStats `json:"by_reason"`
}

// NewCalibrationService constructs the service.
func NewCalibrationService(deps CalibrationDependencies) *CalibrationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	random := deps.Random
	if random == nil {
		random = rand.Float64
	}
	pct := deps.SamplePct
	if pct <= 0 {
		pct = defaultSamplePct
	}
	return &CalibrationService{
		resolutions:  deps.ResolutionRepo,
		calibrations: deps.CalibrationRepo,
		agents:       deps.AgentRepo,
		teams:        deps.TeamRepo,
		notifier:     deps.Notifier,
		logger:       logger,
		clock:        deps.Clock,
		random:       random,
		samplePct:    pct,
	}
}

// GenerateQueue makes sure every manager-tier resolution created in
// [from, to) is queued, adds a random sample of the lower tiers and returns
// the pending items of the window. samplePct <= 0 uses the configured rate.
func (s *CalibrationService) GenerateQueue(ctx context.Context, from, to time.Time, samplePct float64) ([]domain.CalibrationItem, error) {
	if !to.After(from) {
		return nil, apperrors.NewValidationError("window end must be after start", nil)
	}
	if samplePct <= 0 {
		samplePct = s.samplePct
	}
	resolutions, err := s.resolutions.List(ctx, repository.ResolutionFilter{CreatedFrom: &from, CreatedTo: &to})
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	for i := range resolutions {
		res := &resolutions[i]
		var reason domain.CalibrationReason
		switch {
		case res.EmpowermentTier == domain.EmpowermentTierManager:
			reason = domain.CalibrationReasonTier3
		case res.ApprovalStatus == domain.ApprovalStatusRejected:
			continue
		case res.CalibrationStatus == domain.CalibrationStatusNotRequired && s.random()*100 < samplePct:
			reason = domain.CalibrationReasonRandomSample
		default:
			continue
		}
		added, err := s.calibrations.Enqueue(ctx, &domain.CalibrationItem{
			ID:           uuid.NewString(),
			ResolutionID: res.ID,
			Reason:       reason,
			ReviewStatus: domain.ReviewStatusPending,
			CreatedAt:    now,
		})
		if err != nil {
			return nil, err
		}
		if added && res.CalibrationStatus == domain.CalibrationStatusNotRequired {
			res.CalibrationStatus = domain.CalibrationStatusPending
			if err := s.resolutions.Update(ctx, res); err != nil {
				return nil, err
			}
		}
	}

	pending := domain.ReviewStatusPending
	items, err := s.calibrations.List(ctx, repository.CalibrationFilter{ReviewStatus: &pending})
	if err != nil {
		return nil, err
	}
	inWindow := make(map[string]bool, len(resolutions))
	for _, res := range resolutions {
		inWindow[res.ID] = true
	}
	queue := make([]domain.CalibrationItem, 0, len(items))
	for _, item := range items {
		if inWindow[item.ResolutionID] {
			queue = append(queue, item)
		}
	}
	return queue, nil
}

// ReviewItem records a reviewer's outcome on a pending item and mirrors it
// on the resolution. coaching_needed notifies the author's supervisor.
func (s *CalibrationService) ReviewItem(ctx context.Context, itemID, reviewerID string, outcome domain.CalibrationOutcome, notes string) (*domain.CalibrationItem, error) {
	if !outcome.Valid() {
		return nil, apperrors.NewValidationError("outcome must be upheld, revised or coaching_needed", map[string]any{"outcome": outcome})
	}
	item, err := s.calibrations.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "calibration item", itemID)
	}
	if item.ReviewStatus == domain.ReviewStatusReviewed {
		return nil, apperrors.NewConflict("calibration item already reviewed", map[string]any{"item_id": item.ID})
	}
	res, err := s.resolutions.GetByID(ctx, item.ResolutionID)
	if err != nil {
		return nil, notFound(err, "resolution", item.ResolutionID)
	}

	now := s.clock.now()
	item.ReviewStatus = domain.ReviewStatusReviewed
	item.Outcome = &outcome
	item.ReviewerID = &reviewerID
	item.ReviewerNotes = strings.TrimSpace(notes)
	item.ReviewedAt = &now
	if err := s.calibrations.Update(ctx, item); err != nil {
		return nil, err
	}

	res.CalibrationStatus = domain.CalibrationStatus(outcome)
	if err := s.resolutions.Update(ctx, res); err != nil {
		return nil, err
	}

	if outcome == domain.CalibrationOutcomeCoachingNeeded {
		recipients, err := s.authorSupervisors(ctx, res.AgentID)
		if err != nil {
			s.logger.Warn("resolve coaching recipients", zap.String("agent_id", res.AgentID), zap.Error(err))
		}
		s.notifier.RequestCoaching(ctx, res, reviewerID, recipients)
	}
	return item, nil
}

func (s *CalibrationService) authorSupervisors(ctx context.Context, agentID string) ([]string, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, teamID := range agent.TeamIDs {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return nil, err
		}
		if team.SupervisorID != nil && *team.SupervisorID != agentID {
			return []string{*team.SupervisorID}, nil
		}
	}
	return nil, nil
}

// Report aggregates calibration items created in [from, to).
func (s *CalibrationService) Report(ctx context.Context, from, to time.Time) (*CalibrationReport, error) {
	if !to.After(from) {
		return nil, apperrors.NewValidationError("window end must be after start", nil)
	}
	items, err := s.calibrations.List(ctx, repository.CalibrationFilter{CreatedFrom: &from, CreatedTo: &to})
	if err != nil {
		return nil, err
	}

	report := &CalibrationReport{From: from, To: to, ByReason: map[string]ReasonStats{}}
	for _, item := range items {
		stats := report.ByReason[string(item.Reason)]
		stats.add(item)
		report.ByReason[string(item.Reason)] = stats
		report.Overall.add(item)
	}
	report.Overall.finish()
	for reason, stats := range report.ByReason {
		stats.finish()
		report.ByReason[reason] = stats
	}
	return report, nil
}

func (r *ReasonStats) add(item domain.CalibrationItem) {
	r.Total++
	if item.ReviewStatus != domain.ReviewStatusReviewed || item.Outcome == nil {
		return
	}
	r.Reviewed++
	switch *item.Outcome {
	case domain.CalibrationOutcomeUpheld:
		r.Upheld++
	case domain.CalibrationOutcomeRevised:
		r.Revised++
	case domain.CalibrationOutcomeCoachingNeeded:
		r.CoachingNeeded++
	}
}

func (r *ReasonStats) finish() {
	if r.Reviewed > 0 {
		r.UpholdRate = round2(float64(r.Upheld) / float64(r.Reviewed))
	}
}
