package memory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
)

type caseFlagRepo struct{ s *Store }

func (r caseFlagRepo) Create(_ context.Context, flag *domain.CaseFlag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.flags[flag.ID] = *flag
	r.s.flagOrder = append(r.s.flagOrder, flag.ID)
	return nil
}

func (r caseFlagRepo) GetByID(_ context.Context, id string) (*domain.CaseFlag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	flag, ok := r.s.flags[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &flag, nil
}

func (r caseFlagRepo) ListActive(_ context.Context, ticketID string) ([]domain.CaseFlag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.CaseFlag
	for _, id := range r.s.flagOrder {
		if flag := r.s.flags[id]; flag.TicketID == ticketID && flag.ClearedAt == nil {
			result = append(result, flag)
		}
	}
	return result, nil
}

func (r caseFlagRepo) Clear(_ context.Context, id, clearedBy string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	flag, ok := r.s.flags[id]
	if !ok || flag.ClearedAt != nil {
		return pgx.ErrNoRows
	}
	flag.ClearedAt = &at
	flag.ClearedBy = &clearedBy
	r.s.flags[id] = flag
	return nil
}

type resolutionRepo struct{ s *Store }

func (r resolutionRepo) Create(_ context.Context, res *domain.Resolution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.resolutions[res.ID] = *res
	r.s.resolutionOrder = append(r.s.resolutionOrder, res.ID)
	return nil
}

func (r resolutionRepo) Update(_ context.Context, res *domain.Resolution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.resolutions[res.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	current.ApprovalStatus = res.ApprovalStatus
	current.ApprovedBy = res.ApprovedBy
	current.ApprovedAt = res.ApprovedAt
	current.ApprovalNotes = res.ApprovalNotes
	current.CalibrationStatus = res.CalibrationStatus
	r.s.resolutions[res.ID] = current
	return nil
}

func (r resolutionRepo) GetByID(_ context.Context, id string) (*domain.Resolution, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.resolutions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &res, nil
}

func (r resolutionRepo) List(_ context.Context, filter repository.ResolutionFilter) ([]domain.Resolution, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Resolution
	for _, id := range r.s.resolutionOrder {
		res := r.s.resolutions[id]
		if filter.ApprovalStatus != nil && res.ApprovalStatus != *filter.ApprovalStatus {
			continue
		}
		if len(filter.Tiers) > 0 && !hasTier(filter.Tiers, res.EmpowermentTier) {
			continue
		}
		if filter.AgentIDs != nil && !contains(filter.AgentIDs, res.AgentID) {
			continue
		}
		if filter.CreatedFrom != nil && res.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && !res.CreatedAt.Before(*filter.CreatedTo) {
			continue
		}
		result = append(result, res)
	}
	return result, nil
}

func hasTier(list []domain.EmpowermentTier, v domain.EmpowermentTier) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type calibrationRepo struct{ s *Store }

func (r calibrationRepo) Enqueue(_ context.Context, item *domain.CalibrationItem) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.calibrations {
		if existing.ResolutionID == item.ResolutionID && existing.Reason == item.Reason {
			return false, nil
		}
	}
	r.s.calibrations[item.ID] = *item
	r.s.calibrationOrder = append(r.s.calibrationOrder, item.ID)
	return true, nil
}

func (r calibrationRepo) GetByID(_ context.Context, id string) (*domain.CalibrationItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.calibrations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}

func (r calibrationRepo) Update(_ context.Context, item *domain.CalibrationItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.calibrations[item.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.calibrations[item.ID] = *item
	return nil
}

func (r calibrationRepo) List(_ context.Context, filter repository.CalibrationFilter) ([]domain.CalibrationItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.CalibrationItem
	for _, id := range r.s.calibrationOrder {
		item := r.s.calibrations[id]
		if filter.ReviewStatus != nil && item.ReviewStatus != *filter.ReviewStatus {
			continue
		}
		if filter.CreatedFrom != nil && item.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && !item.CreatedAt.Before(*filter.CreatedTo) {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

type alertRepo struct{ s *Store }

func (r alertRepo) CreateIfAbsent(_ context.Context, alert *domain.Alert) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.activeLocked(alert.TicketID, alert.Condition, alert.Level) != nil {
		return false, nil
	}
	stored := *alert
	stored.RecipientsNotified = cloneStrings(alert.RecipientsNotified)
	r.s.alerts[alert.ID] = stored
	r.s.alertOrder = append(r.s.alertOrder, alert.ID)
	return true, nil
}

func (r alertRepo) GetActive(_ context.Context, ticketID string, condition domain.AlertCondition, level int) (*domain.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.activeLocked(ticketID, condition, level), nil
}

func (r alertRepo) activeLocked(ticketID string, condition domain.AlertCondition, level int) *domain.Alert {
	for _, id := range r.s.alertOrder {
		alert := r.s.alerts[id]
		if alert.TicketID == ticketID && alert.Condition == condition && alert.Level == level && alert.IsActive() {
			alert.RecipientsNotified = cloneStrings(alert.RecipientsNotified)
			return &alert
		}
	}
	return nil
}

func (r alertRepo) GetByID(_ context.Context, id string) (*domain.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	alert, ok := r.s.alerts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	alert.RecipientsNotified = cloneStrings(alert.RecipientsNotified)
	return &alert, nil
}

func (r alertRepo) Acknowledge(_ context.Context, id, agentID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	alert, ok := r.s.alerts[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if !alert.IsActive() {
		return false, nil
	}
	alert.AcknowledgedAt = &at
	alert.AcknowledgedBy = &agentID
	r.s.alerts[id] = alert
	return true, nil
}

func (r alertRepo) ListActiveForRecipient(_ context.Context, agentID string) ([]domain.Alert, error) {
	return r.filter(func(a domain.Alert) bool { return a.IsActive() && contains(a.RecipientsNotified, agentID) }), nil
}

func (r alertRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Alert, error) {
	return r.filter(func(a domain.Alert) bool { return a.TicketID == ticketID }), nil
}

func (r alertRepo) filter(keep func(domain.Alert) bool) []domain.Alert {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Alert
	for _, id := range r.s.alertOrder {
		if alert := r.s.alerts[id]; keep(alert) {
			alert.RecipientsNotified = cloneStrings(alert.RecipientsNotified)
			result = append(result, alert)
		}
	}
	return result
}

type timelineRepo struct{ s *Store }

func (r timelineRepo) Append(_ context.Context, entry *domain.TimelineEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.timeline = append(r.s.timeline, *entry)
	return nil
}

func (r timelineRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TimelineEntry
	for _, entry := range r.s.timeline {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

