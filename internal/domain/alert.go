package domain

import "time"

// AlertCondition is what an escalation rule watches for.
type AlertCondition string

const (
	AlertConditionNotAssigned  AlertCondition = "not_assigned"
	AlertConditionNotUpdated   AlertCondition = "not_updated"
	AlertConditionNotCompleted AlertCondition = "not_completed"
)

// AlertTrigger is the time basis a rule is measured from.
type AlertTrigger string

const (
	AlertTriggerAfterCreation   AlertTrigger = "after_creation"
	AlertTriggerSinceLastUpdate AlertTrigger = "since_last_update"
	AlertTriggerBeforeDueDate   AlertTrigger = "before_due_date"
)

// RecipientType is a role resolved to agent ids when an alert fires.
type RecipientType string

const (
	RecipientTech         RecipientType = "tech"
	RecipientSupervisor   RecipientType = "supervisor"
	RecipientGroupManager RecipientType = "group_manager"
)

// TimeUnit of a rule threshold.
type TimeUnit string

const (
	TimeUnitMinutes TimeUnit = "minutes"
	TimeUnitHours   TimeUnit = "hours"
)

// AlertRule is one row of the escalation matrix.
type AlertRule struct {
	Condition  AlertCondition  `mapstructure:"condition"`
	TimeValue  int             `mapstructure:"time_value"`
	TimeUnit   TimeUnit        `mapstructure:"time_unit"`
	Trigger    AlertTrigger    `mapstructure:"trigger"`
	Recipients []RecipientType `mapstructure:"recipients"`
}

// Threshold converts the rule value to a duration.
func (r AlertRule) Threshold() time.Duration {
	if r.TimeUnit == TimeUnitHours {
		return time.Duration(r.TimeValue) * time.Hour
	}
	return time.Duration(r.TimeValue) * time.Minute
}

// AlertLevel groups rules of one escalation level (1-3).
type AlertLevel struct {
	Level int         `mapstructure:"level"`
	Rules []AlertRule `mapstructure:"rules"`
}

// PriorityAlertConfig is the escalation matrix entry for one priority.
type PriorityAlertConfig struct {
	Priority            TicketPriority `mapstructure:"priority"`
	DisplayOrder        int            `mapstructure:"display_order"`
	Color               string         `mapstructure:"color"`
	DueTimeHours        int            `mapstructure:"due_time_hours"`
	ClientReminderHours int            `mapstructure:"client_reminder_hours"`
	AlertLevels         []AlertLevel   `mapstructure:"alert_levels"`
	UseBusinessTime     bool           `mapstructure:"use_business_time"`
	BusinessStartHour   int            `mapstructure:"business_start_hour"`
	BusinessEndHour     int            `mapstructure:"business_end_hour"`
	BusinessDays        []time.Weekday `mapstructure:"business_days"`
}

// Alert is a fired escalation. At most one unacknowledged alert exists per
// ticket, condition and level.
type Alert struct {
	ID                 string
	TicketID           string
	Condition          AlertCondition
	Level              int
	TriggeredAt        time.Time
	AcknowledgedAt     *time.Time
	AcknowledgedBy     *string
	RecipientsNotified []string
}

// IsActive reports whether the alert is still unacknowledged.
func (a *Alert) IsActive() bool {
	return a.AcknowledgedAt == nil
}
