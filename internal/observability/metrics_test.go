package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCountAlertsAndRaces(t *testing.T) {
	m := NewMetrics()

	m.AlertFired("not_assigned", 1)
	m.AlertFired("not_assigned", 1)
	m.AlertSuppressed("not_assigned", 1)
	m.AcceptConflict("envelope")
	m.TicketAccepted()

	assert.InDelta(t, 2, testutil.ToFloat64(m.alertsFired.WithLabelValues("not_assigned", "1")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.alertsSkipped.WithLabelValues("not_assigned", "1")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.acceptRaces.WithLabelValues("envelope")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ticketsAccepted), 0)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/x", "GET", 200, time.Millisecond)
		m.RecordError("/x", "GET", "NOT_FOUND")
		m.AlertFired("not_updated", 2)
		m.ObserveSweep(time.Second, 3, 1)
	})
	assert.Nil(t, m.Registry())
}
