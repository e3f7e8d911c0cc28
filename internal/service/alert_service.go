package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ownerdesk/ticket-engine/internal/calendar"
	"github.com/ownerdesk/ticket-engine/internal/config"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/lock"
	"github.com/ownerdesk/ticket-engine/internal/observability"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

const (
	defaultSweepConcurrency = 8
	defaultSweepLockTTL     = 30 * time.Second
)

// GroupManagerResolver names the group managers responsible for a ticket.
type GroupManagerResolver interface {
	GroupManagers(ctx context.Context, ticket *domain.Ticket) ([]string, error)
}

// TeamGroupManagers resolves the manager of the ticket's team, falling back
// to a fixed list when the ticket has no team or the team has no manager.
type TeamGroupManagers struct {
	teams    repository.TeamRepository
	fallback []string
}

// NewTeamGroupManagers constructs the resolver.
func NewTeamGroupManagers(teams repository.TeamRepository, fallback []string) *TeamGroupManagers {
	return &TeamGroupManagers{teams: teams, fallback: fallback}
}

func (r *TeamGroupManagers) GroupManagers(ctx context.Context, ticket *domain.Ticket) ([]string, error) {
	if ticket.TeamID != nil {
		team, err := r.teams.GetByID(ctx, *ticket.TeamID)
		if err != nil {
			return nil, notFound(err, "team", *ticket.TeamID)
		}
		if team.ManagerID != nil {
			return []string{*team.ManagerID}, nil
		}
	}
	return append([]string(nil), r.fallback...), nil
}

// SweepResult summarizes one CheckAllOpenTickets run.
type SweepResult struct {
	Evaluated   int `json:"evaluated"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	AlertsFired int `json:"alerts_fired"`
}

// AlertService evaluates the escalation matrix and fires de-duplicated alerts.
type AlertService struct {
	tickets       repository.TicketRepository
	agents        repository.AgentRepository
	teams         repository.TeamRepository
	alerts        repository.AlertRepository
	matrix        config.AlertMatrix
	calendar      calendar.Calendar
	groupManagers GroupManagerResolver
	notifier      Notifier
	locker        lock.Locker
	lockTTL       time.Duration
	concurrency   int
	metrics       *observability.Metrics
	logger        *zap.Logger
	clock         Clock
}

// AlertDependencies bundles collaborators for the alert engine.
type AlertDependencies struct {
	TicketRepo    repository.TicketRepository
	AgentRepo     repository.AgentRepository
	TeamRepo      repository.TeamRepository
	AlertRepo     repository.AlertRepository
	Matrix        config.AlertMatrix
	Calendar      calendar.Calendar
	GroupManagers GroupManagerResolver
	Notifier      Notifier
	// Locker serializes per-ticket evaluation across processes; nil disables it.
	Locker      lock.Locker
	LockTTL     time.Duration
	Concurrency int
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       Clock
}

// NewAlertService constructs the service.
func NewAlertService(deps AlertDependencies) *AlertService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	matrix := deps.Matrix
	if matrix == nil {
		matrix = config.DefaultAlertMatrix()
	}
	cal := deps.Calendar
	if cal == nil {
		cal = calendar.New()
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = defaultSweepLockTTL
	}
	return &AlertService{
		tickets:       deps.TicketRepo,
		agents:        deps.AgentRepo,
		teams:         deps.TeamRepo,
		alerts:        deps.AlertRepo,
		matrix:        matrix,
		calendar:      cal,
		groupManagers: deps.GroupManagers,
		notifier:      deps.Notifier,
		locker:        deps.Locker,
		lockTTL:       ttl,
		concurrency:   concurrency,
		metrics:       deps.Metrics,
		logger:        logger,
		clock:         deps.Clock,
	}
}

// Matrix returns the escalation configuration for priority.
func (s *AlertService) Matrix(priority domain.TicketPriority) (domain.PriorityAlertConfig, bool) {
	cfg, ok := s.matrix[priority]
	return cfg, ok
}

// CheckTicketAlerts evaluates every rule for the ticket's priority and returns
// the alerts fired by this call. A rule whose (condition, level) already has
// an unacknowledged alert is suppressed.
func (s *AlertService) CheckTicketAlerts(ctx context.Context, ticketID string) ([]domain.Alert, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", ticketID)
	}
	cfg, ok := s.matrix[ticket.Priority]
	if !ok {
		return nil, nil
	}

	now := s.clock.now()
	fired := []domain.Alert{}
	for _, level := range cfg.AlertLevels {
		for _, rule := range level.Rules {
			if !s.triggered(ticket, cfg, rule, now) {
				continue
			}
			alert, err := s.fire(ctx, ticket, rule, level.Level, now)
			if err != nil {
				return fired, err
			}
			if alert != nil {
				fired = append(fired, *alert)
			}
		}
	}
	return fired, nil
}

func (s *AlertService) triggered(ticket *domain.Ticket, cfg domain.PriorityAlertConfig, rule domain.AlertRule, now time.Time) bool {
	threshold := rule.Threshold()
	switch rule.Trigger {
	case domain.AlertTriggerAfterCreation:
		if rule.Condition == domain.AlertConditionNotAssigned && ticket.OwnerID != nil {
			return false
		}
		return s.elapsed(cfg, ticket.CreatedAt, now) >= threshold
	case domain.AlertTriggerSinceLastUpdate:
		return s.elapsed(cfg, ticket.UpdatedAt, now) >= threshold
	case domain.AlertTriggerBeforeDueDate:
		resolved := ticket.ResolvedAt != nil || !ticket.Status.IsOpen()
		if resolved || ticket.SLABreachAt == nil {
			return false
		}
		return ticket.SLABreachAt.Sub(now) <= threshold
	}
	return false
}

// elapsed is wall-clock time, or business time when the priority asks for it.
func (s *AlertService) elapsed(cfg domain.PriorityAlertConfig, from, now time.Time) time.Duration {
	if !cfg.UseBusinessTime {
		return now.Sub(from)
	}
	return s.calendar.BusinessTimeBetween(from, now, cfg.BusinessStartHour, cfg.BusinessEndHour, cfg.BusinessDays)
}

func (s *AlertService) fire(ctx context.Context, ticket *domain.Ticket, rule domain.AlertRule, level int, now time.Time) (*domain.Alert, error) {
	existing, err := s.alerts.GetActive(ctx, ticket.ID, rule.Condition, level)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.AlertSuppressed(string(rule.Condition), level)
		return nil, nil
	}

	recipients, err := s.resolveRecipients(ctx, ticket, rule.Recipients)
	if err != nil {
		return nil, err
	}
	alert := &domain.Alert{
		ID:                 uuid.NewString(),
		TicketID:           ticket.ID,
		Condition:          rule.Condition,
		Level:              level,
		TriggeredAt:        now,
		RecipientsNotified: recipients,
	}
	created, err := s.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		return nil, err
	}
	if !created {
		// another evaluation won the insert
		s.metrics.AlertSuppressed(string(rule.Condition), level)
		return nil, nil
	}

	s.metrics.AlertFired(string(rule.Condition), level)
	s.logger.Info("alert fired",
		zap.String("ticket_id", ticket.ID),
		zap.String("condition", string(rule.Condition)),
		zap.Int("level", level),
		zap.Strings("recipients", recipients))
	for _, recipient := range recipients {
		s.notifier.SendAlert(ctx, recipient, ticket, alert)
	}
	return alert, nil
}

// resolveRecipients maps recipient roles to agent ids, keeping first
// occurrence order.
func (s *AlertService) resolveRecipients(ctx context.Context, ticket *domain.Ticket, roles []domain.RecipientType) ([]string, error) {
	var ids []string
	for _, role := range roles {
		switch role {
		case domain.RecipientTech:
			if ticket.OwnerID != nil {
				ids = append(ids, *ticket.OwnerID)
			}
		case domain.RecipientSupervisor:
			supervisor, err := s.ownerSupervisor(ctx, ticket)
			if err != nil {
				return nil, err
			}
			ids = append(ids, supervisor)
		case domain.RecipientGroupManager:
			if s.groupManagers == nil {
				continue
			}
			managers, err := s.groupManagers.GroupManagers(ctx, ticket)
			if err != nil {
				return nil, err
			}
			ids = append(ids, managers...)
		}
	}
	return uniqueIDs(ids...), nil
}

// ownerSupervisor returns the supervisor of the first of the owner's teams,
// in membership order, that has one.
func (s *AlertService) ownerSupervisor(ctx context.Context, ticket *domain.Ticket) (string, error) {
	if ticket.OwnerID == nil {
		return "", nil
	}
	owner, err := s.agents.GetByID(ctx, *ticket.OwnerID)
	if err != nil {
		return "", notFound(err, "agent", *ticket.OwnerID)
	}
	for _, teamID := range owner.TeamIDs {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return "", notFound(err, "team", teamID)
		}
		if team.SupervisorID != nil {
			return *team.SupervisorID, nil
		}
	}
	return "", nil
}

// CheckAllOpenTickets evaluates every open ticket, in parallel and bounded by
// the configured concurrency. Tickets locked by another evaluator are skipped
// and per-ticket failures are logged without aborting the sweep.
func (s *AlertService) CheckAllOpenTickets(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Statuses: domain.OpenTicketStatuses()})
	if err != nil {
		return SweepResult{}, err
	}

	var (
		mu     sync.Mutex
		result SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range tickets {
		ticketID := tickets[i].ID
		g.Go(func() error {
			fired, skipped, err := s.checkLocked(gctx, ticketID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case skipped:
				result.Skipped++
			case err != nil:
				result.Evaluated++
				result.Failed++
				s.logger.Error("alert check failed", zap.String("ticket_id", ticketID), zap.Error(err))
			default:
				result.Evaluated++
				result.AlertsFired += fired
			}
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.ObserveSweep(time.Since(start), result.Evaluated, result.Failed)
	s.logger.Info("alert sweep finished",
		zap.Int("tickets", len(tickets)),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("alerts_fired", result.AlertsFired),
		zap.Duration("duration", time.Since(start)))
	return result, ctx.Err()
}

func (s *AlertService) checkLocked(ctx context.Context, ticketID string) (fired int, skipped bool, err error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "alert-check:"+ticketID, s.lockTTL)
		if errors.Is(err, lock.ErrNotAcquired) {
			return 0, true, nil
		}
		if err != nil {
			return 0, false, err
		}
		defer release()
	}
	alerts, err := s.CheckTicketAlerts(ctx, ticketID)
	return len(alerts), false, err
}

// AcknowledgeAlert marks an outstanding alert as handled, after which the
// same condition and level may fire again.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, alertID, agentID string) (*domain.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, notFound(err, "alert", alertID)
	}
	if !alert.IsActive() {
		return nil, apperrors.NewConflict("alert already acknowledged", map[string]any{"alert_id": alert.ID})
	}
	now := s.clock.now()
	ok, err := s.alerts.Acknowledge(ctx, alert.ID, agentID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewConflict("alert already acknowledged", map[string]any{"alert_id": alert.ID})
	}
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = &agentID
	return alert, nil
}

// PendingAlerts lists unacknowledged alerts that notified agentID.
func (s *AlertService) PendingAlerts(ctx context.Context, agentID string) ([]domain.Alert, error) {
	alerts, err := s.alerts.ListActiveForRecipient(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	return alerts, nil
}
