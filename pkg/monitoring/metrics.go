package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ledger operation metrics
	ledgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"operation", "outcome"},
	)

	auditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_audit_events_total",
			Help: "Total number of committed audit events",
		},
		[]string{"kind"},
	)

	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(
		ledgerOperationsTotal,
		auditEventsTotal,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// RecordLedgerOperation records the outcome of a ledger operation.
func RecordLedgerOperation(operation, outcome string) {
	ledgerOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAuditEvent records a committed audit event by kind.
func RecordAuditEvent(kind string) {
	auditEventsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records an HTTP request observation.
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Handler returns the prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
