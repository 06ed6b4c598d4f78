package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestsTotal  *prometheus.CounterVec
	latencySeconds *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec

	placementTransitions   *prometheus.CounterVec
	timesheetDecisions     *prometheus.CounterVec
	notificationsPublished *prometheus.CounterVec
	sseClients             prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldwork_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fieldwork_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldwork_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		placementTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldwork_placement_transitions_total",
			Help: "Placement lifecycle transitions applied, labeled by prior and new status.",
		}, []string{"from", "to"})

		timesheetDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldwork_timesheet_decisions_total",
			Help: "Week-group timesheet actions applied, labeled by stage and action.",
		}, []string{"stage", "action"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldwork_notifications_published_total",
			Help: "Workflow notifications published, labeled by kind.",
		}, []string{"kind"})

		sseClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldwork_sse_clients_active",
			Help: "Number of active notification stream subscribers.",
		})

		prometheus.MustRegister(requestsTotal, latencySeconds, errorsTotal,
			placementTransitions, timesheetDecisions, notificationsPublished, sseClients)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// PlacementTransitionsTotal exposes the placement transition counter.
func PlacementTransitionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return placementTransitions
}

// TimesheetDecisionsTotal exposes the timesheet decision counter.
func TimesheetDecisionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return timesheetDecisions
}

// NotificationsPublishedTotal exposes the notification publish counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// SSEClientsActive exposes the gauge of connected stream subscribers.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClients
}
