package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics instruments the inbound HTTP surface.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlo_http_requests_total",
			Help: "Count of HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status_code"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlo_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// GinMiddleware records request counts and latency.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Metrics exposes application-level instruments for the pricing engine.
type Metrics struct {
	resolutions   *prometheus.CounterVec
	ledgerEntries *prometheus.CounterVec
	transferLegs  *prometheus.CounterVec
	compensations prometheus.Counter
	assignments   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlo_commission_resolutions_total",
			Help: "Commission resolution attempts by service type and outcome.",
		}, []string{"service_type", "outcome"}),
		ledgerEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlo_wallet_ledger_entries_total",
			Help: "Wallet ledger postings by fund category and direction.",
		}, []string{"fund_category", "direction"}),
		transferLegs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlo_transfer_legs_total",
			Help: "Transfer legs applied by direction and result.",
		}, []string{"direction", "result"}),
		compensations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settlo_transfer_compensations_total",
			Help: "Transfers whose debit leg was reversed after a failed credit leg.",
		}),
		assignments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settlo_scheme_assignments_total",
			Help: "Scheme-to-entity mapping assignments.",
		}),
	}
}

func (m *Metrics) RecordResolution(serviceType, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strings.TrimSpace(serviceType), strings.TrimSpace(outcome)).Inc()
}

func (m *Metrics) RecordLedgerEntry(fundCategory, direction string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(strings.TrimSpace(fundCategory), strings.TrimSpace(direction)).Inc()
}

func (m *Metrics) RecordTransferLeg(direction, result string) {
	if m == nil {
		return
	}
	m.transferLegs.WithLabelValues(strings.TrimSpace(direction), strings.TrimSpace(result)).Inc()
}

func (m *Metrics) RecordCompensation() {
	if m == nil {
		return
	}
	m.compensations.Inc()
}

func (m *Metrics) RecordAssignment() {
	if m == nil {
		return
	}
	m.assignments.Inc()
}
