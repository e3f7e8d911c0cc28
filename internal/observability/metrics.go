package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ticket_engine"

// Metrics holds the Prometheus collectors of one process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	alertsFired     *prometheus.CounterVec
	alertsSkipped   *prometheus.CounterVec
	acceptRaces     *prometheus.CounterVec
	ticketsAccepted prometheus.Counter
	sweepDuration   prometheus.Histogram
	sweepTickets    *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Failed requests by route, method and error code",
		}, []string{"route", "method", "code"}),
		alertsFired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "fired_total",
			Help:      "Escalation alerts created",
		}, []string{"condition", "level"}),
		alertsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Alert evaluations suppressed by an outstanding alert",
		}, []string{"condition", "level"}),
		acceptRaces: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ownership",
			Name:      "accept_conflicts_total",
			Help:      "Lost compare-and-set races on ticket or envelope acceptance",
		}, []string{"kind"}),
		ticketsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ownership",
			Name:      "tickets_accepted_total",
			Help:      "Tickets accepted by an owner",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Duration of open ticket alert sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepTickets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "tickets_total",
			Help:      "Tickets evaluated by the sweep, labeled by result",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// AlertFired counts a persisted alert.
func (m *Metrics) AlertFired(condition string, level int) {
	if m == nil {
		return
	}
	m.alertsFired.WithLabelValues(condition, strconv.Itoa(level)).Inc()
}

// AlertSuppressed counts a rule that matched while its alert was outstanding.
func (m *Metrics) AlertSuppressed(condition string, level int) {
	if m == nil {
		return
	}
	m.alertsSkipped.WithLabelValues(condition, strconv.Itoa(level)).Inc()
}

// AcceptConflict counts a lost acceptance race; kind is "ticket" or "envelope".
func (m *Metrics) AcceptConflict(kind string) {
	if m == nil {
		return
	}
	m.acceptRaces.WithLabelValues(kind).Inc()
}

// TicketAccepted counts a successful ownership claim.
func (m *Metrics) TicketAccepted() {
	if m == nil {
		return
	}
	m.ticketsAccepted.Inc()
}

// ObserveSweep records one sweep run.
func (m *Metrics) ObserveSweep(duration time.Duration, evaluated, failed int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
	m.sweepTickets.WithLabelValues("ok").Add(float64(evaluated - failed))
	m.sweepTickets.WithLabelValues("error").Add(float64(failed))
}
