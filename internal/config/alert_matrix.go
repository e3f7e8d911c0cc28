package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// AlertMatrix maps each static priority to its escalation configuration.
type AlertMatrix map[domain.TicketPriority]domain.PriorityAlertConfig

var defaultBusinessDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// matrixEntry mirrors PriorityAlertConfig with optional fields so a file can
// override only what it names.
type matrixEntry struct {
	Priority            domain.TicketPriority `mapstructure:"priority"`
	DisplayOrder        *int                  `mapstructure:"display_order"`
	Color               *string               `mapstructure:"color"`
	DueTimeHours        *int                  `mapstructure:"due_time_hours"`
	ClientReminderHours *int                  `mapstructure:"client_reminder_hours"`
	AlertLevels         []domain.AlertLevel   `mapstructure:"alert_levels"`
	UseBusinessTime     *bool                 `mapstructure:"use_business_time"`
	BusinessStartHour   *int                  `mapstructure:"business_start_hour"`
	BusinessEndHour     *int                  `mapstructure:"business_end_hour"`
	BusinessDays        []time.Weekday        `mapstructure:"business_days"`
}

type matrixFile struct {
	Priorities []matrixEntry `mapstructure:"priorities"`
}

// LoadAlertMatrix returns the default matrix, overridden by the YAML/JSON/TOML
// file at path when one is given.
func LoadAlertMatrix(path string) (AlertMatrix, error) {
	matrix := DefaultAlertMatrix()
	if path == "" {
		return matrix, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read alert matrix %s: %w", path, err)
	}

	var file matrixFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode alert matrix %s: %w", path, err)
	}

	for _, entry := range file.Priorities {
		if !entry.Priority.Valid() {
			return nil, fmt.Errorf("alert matrix: unknown priority %q", entry.Priority)
		}
		merged := entry.apply(matrix[entry.Priority])
		if err := validatePriorityConfig(merged); err != nil {
			return nil, err
		}
		matrix[entry.Priority] = merged
	}
	return matrix, nil
}

func (e matrixEntry) apply(base domain.PriorityAlertConfig) domain.PriorityAlertConfig {
	base.Priority = e.Priority
	if e.DisplayOrder != nil {
		base.DisplayOrder = *e.DisplayOrder
	}
	if e.Color != nil {
		base.Color = *e.Color
	}
	if e.DueTimeHours != nil {
		base.DueTimeHours = *e.DueTimeHours
	}
	if e.ClientReminderHours != nil {
		base.ClientReminderHours = *e.ClientReminderHours
	}
	if e.AlertLevels != nil {
		base.AlertLevels = e.AlertLevels
	}
	if e.UseBusinessTime != nil {
		base.UseBusinessTime = *e.UseBusinessTime
	}
	if e.BusinessStartHour != nil {
		base.BusinessStartHour = *e.BusinessStartHour
	}
	if e.BusinessEndHour != nil {
		base.BusinessEndHour = *e.BusinessEndHour
	}
	if len(e.BusinessDays) > 0 {
		base.BusinessDays = e.BusinessDays
	}
	return base
}

func validatePriorityConfig(cfg domain.PriorityAlertConfig) error {
	if cfg.BusinessStartHour < 0 || cfg.BusinessEndHour > 24 || cfg.BusinessStartHour >= cfg.BusinessEndHour {
		return fmt.Errorf("alert matrix %s: invalid business hours %d-%d", cfg.Priority, cfg.BusinessStartHour, cfg.BusinessEndHour)
	}
	for _, level := range cfg.AlertLevels {
		if level.Level < 1 || level.Level > 3 {
			return fmt.Errorf("alert matrix %s: level %d out of range", cfg.Priority, level.Level)
		}
		for _, rule := range level.Rules {
			if !validRuleShape(rule) {
				return fmt.Errorf("alert matrix %s level %d: condition %q does not match trigger %q",
					cfg.Priority, level.Level, rule.Condition, rule.Trigger)
			}
			if rule.TimeValue < 0 {
				return fmt.Errorf("alert matrix %s level %d: negative threshold", cfg.Priority, level.Level)
			}
			if rule.TimeUnit != domain.TimeUnitMinutes && rule.TimeUnit != domain.TimeUnitHours {
				return fmt.Errorf("alert matrix %s level %d: unknown time unit %q", cfg.Priority, level.Level, rule.TimeUnit)
			}
		}
	}
	return nil
}

func validRuleShape(rule domain.AlertRule) bool {
	switch rule.Condition {
	case domain.AlertConditionNotAssigned:
		return rule.Trigger == domain.AlertTriggerAfterCreation
	case domain.AlertConditionNotUpdated:
		return rule.Trigger == domain.AlertTriggerSinceLastUpdate
	case domain.AlertConditionNotCompleted:
		return rule.Trigger == domain.AlertTriggerBeforeDueDate
	}
	return false
}

func rule(cond domain.AlertCondition, value int, unit domain.TimeUnit, recipients ...domain.RecipientType) domain.AlertRule {
	r := domain.AlertRule{Condition: cond, TimeValue: value, TimeUnit: unit, Recipients: recipients}
	switch cond {
	case domain.AlertConditionNotAssigned:
		r.Trigger = domain.AlertTriggerAfterCreation
	case domain.AlertConditionNotUpdated:
		r.Trigger = domain.AlertTriggerSinceLastUpdate
	case domain.AlertConditionNotCompleted:
		r.Trigger = domain.AlertTriggerBeforeDueDate
	}
	return r
}

func businessHoursConfig(priority domain.TicketPriority, order int, color string, dueHours, reminderHours int, levels ...domain.AlertLevel) domain.PriorityAlertConfig {
	return domain.PriorityAlertConfig{
		Priority:            priority,
		DisplayOrder:        order,
		Color:               color,
		DueTimeHours:        dueHours,
		ClientReminderHours: reminderHours,
		AlertLevels:         levels,
		UseBusinessTime:     true,
		BusinessStartHour:   8,
		BusinessEndHour:     18,
		BusinessDays:        append([]time.Weekday(nil), defaultBusinessDays...),
	}
}

// DefaultAlertMatrix is the built-in escalation matrix.
func DefaultAlertMatrix() AlertMatrix {
	const (
		tech    = domain.RecipientTech
		sup     = domain.RecipientSupervisor
		gm      = domain.RecipientGroupManager
		minutes = domain.TimeUnitMinutes
		hours   = domain.TimeUnitHours
	)
	notAssigned := domain.AlertConditionNotAssigned
	notUpdated := domain.AlertConditionNotUpdated
	notCompleted := domain.AlertConditionNotCompleted

	return AlertMatrix{
		domain.TicketPriorityCritical: businessHoursConfig(domain.TicketPriorityCritical, 1, "#FFD700", 1, 1,
			domain.AlertLevel{Level: 1, Rules: []domain.AlertRule{
				rule(notAssigned, 5, minutes, gm),
				rule(notUpdated, 15, minutes, tech),
				rule(notCompleted, 30, minutes, tech),
			}},
			domain.AlertLevel{Level: 2, Rules: []domain.AlertRule{
				rule(notAssigned, 10, hours, gm),
				rule(notUpdated, 30, minutes, tech, sup),
				rule(notCompleted, 15, minutes, tech, sup),
			}},
			domain.AlertLevel{Level: 3, Rules: []domain.AlertRule{
				rule(notAssigned, 15, hours, gm),
				rule(notUpdated, 45, minutes, tech, sup, gm),
				rule(notCompleted, 0, minutes, tech, sup, gm),
			}},
		),
		domain.TicketPriorityHigh: businessHoursConfig(domain.TicketPriorityHigh, 2, "#FF6B6B", 4, 2,
			domain.AlertLevel{Level: 1, Rules: []domain.AlertRule{
				rule(notAssigned, 15, minutes, gm),
				rule(notUpdated, 1, hours, tech),
				rule(notCompleted, 1, hours, tech),
			}},
		),
		domain.TicketPriorityMedium: businessHoursConfig(domain.TicketPriorityMedium, 3, "#4ECDC4", 8, 4),
		domain.TicketPriorityLow:    businessHoursConfig(domain.TicketPriorityLow, 4, "#95E1D3", 24, 8),
	}
}
