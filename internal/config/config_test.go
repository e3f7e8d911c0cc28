package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ALERT_GROUP_MANAGER_IDS", "gm-1, gm-2,,")
	t.Setenv("ALERT_SWEEP_CONCURRENCY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, []string{"gm-1", "gm-2"}, cfg.Engine.GroupManagerIDs)
	assert.Equal(t, 8, cfg.Engine.SweepConcurrency)
	assert.Equal(t, "@every 1m", cfg.Engine.SweepCron)
	assert.Equal(t, 4, cfg.Engine.EnvelopeDueHours)
	assert.InDelta(t, 5.0, cfg.Engine.CalibrationSamplePct, 0.0001)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultAlertMatrix(t *testing.T) {
	matrix := DefaultAlertMatrix()
	require.Len(t, matrix, 4)

	critical := matrix[domain.TicketPriorityCritical]
	assert.Equal(t, 1, critical.DueTimeHours)
	require.Len(t, critical.AlertLevels, 3)
	assert.Equal(t, 5*time.Minute, critical.AlertLevels[0].Rules[0].Threshold())
	assert.Equal(t, []domain.RecipientType{domain.RecipientGroupManager}, critical.AlertLevels[0].Rules[0].Recipients)
	assert.Equal(t, 8, critical.BusinessStartHour)
	assert.Equal(t, 18, critical.BusinessEndHour)
	assert.True(t, critical.UseBusinessTime)

	assert.Len(t, matrix[domain.TicketPriorityHigh].AlertLevels, 1)
	assert.Empty(t, matrix[domain.TicketPriorityLow].AlertLevels)
	assert.Equal(t, 24, matrix[domain.TicketPriorityLow].DueTimeHours)

	for priority, cfg := range matrix {
		assert.NoError(t, validatePriorityConfig(cfg), priority)
	}
}

func TestLoadAlertMatrixOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	content := `
priorities:
  - priority: medium
    due_time_hours: 6
    use_business_time: false
    alert_levels:
      - level: 1
        rules:
          - condition: not_updated
            time_value: 2
            time_unit: hours
            trigger: since_last_update
            recipients: [tech, supervisor]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	matrix, err := LoadAlertMatrix(path)
	require.NoError(t, err)

	medium := matrix[domain.TicketPriorityMedium]
	assert.Equal(t, 6, medium.DueTimeHours)
	assert.False(t, medium.UseBusinessTime)
	assert.Equal(t, 8, medium.BusinessStartHour)
	require.Len(t, medium.AlertLevels, 1)
	assert.Equal(t, 2*time.Hour, medium.AlertLevels[0].Rules[0].Threshold())
	assert.Equal(t, []domain.RecipientType{domain.RecipientTech, domain.RecipientSupervisor}, medium.AlertLevels[0].Rules[0].Recipients)

	assert.Equal(t, 1, matrix[domain.TicketPriorityCritical].DueTimeHours)
}

func TestLoadAlertMatrixRejectsMismatchedTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	content := `
priorities:
  - priority: high
    alert_levels:
      - level: 1
        rules:
          - condition: not_assigned
            time_value: 5
            time_unit: minutes
            trigger: before_due_date
            recipients: [group_manager]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadAlertMatrix(path)
	assert.Error(t, err)
}
