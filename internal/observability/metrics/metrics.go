package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics captures request-level signals for the gin server.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewHTTPMetrics registers HTTP instruments on the default registry.
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookline",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		inflight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookline",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Requests currently being served.",
		}),
	}
}

// GinMiddleware records per-request metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.inflight.Inc()
		c.Next()
		m.inflight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// BookingMetrics captures allocation and booking outcomes.
type BookingMetrics struct {
	slotsClaimed    *prometheus.CounterVec
	claimConflicts  prometheus.Counter
	jobsBooked      prometheus.Counter
	idempotentHits  prometheus.Counter
	dispatchNeeded  prometheus.Counter
	proposalsSent   prometheus.Counter
	proposalsClosed prometheus.Counter
}

// NewBookingMetrics registers booking instruments on the default registry.
func NewBookingMetrics() *BookingMetrics {
	return &BookingMetrics{
		slotsClaimed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "capacity",
			Name:      "slots_claimed_total",
			Help:      "Slots claimed, labelled by claim mode.",
		}, []string{"mode"}),
		claimConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "capacity",
			Name:      "claim_conflicts_total",
			Help:      "Claim attempts that lost the conditional update.",
		}),
		jobsBooked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "booking",
			Name:      "jobs_booked_total",
			Help:      "Jobs created.",
		}),
		idempotentHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "booking",
			Name:      "idempotent_replays_total",
			Help:      "Booking requests resolved from the idempotency ledger.",
		}),
		dispatchNeeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "booking",
			Name:      "dispatch_needed_total",
			Help:      "Requests that found no capacity.",
		}),
		proposalsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "proposal",
			Name:      "sent_total",
			Help:      "Proposals offered to customers.",
		}),
		proposalsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "proposal",
			Name:      "confirmed_total",
			Help:      "Proposals confirmed into jobs.",
		}),
	}
}

func (m *BookingMetrics) SlotClaimed(mode string) {
	if m == nil {
		return
	}
	m.slotsClaimed.WithLabelValues(mode).Inc()
}

func (m *BookingMetrics) ClaimConflict() {
	if m == nil {
		return
	}
	m.claimConflicts.Inc()
}

func (m *BookingMetrics) JobBooked() {
	if m == nil {
		return
	}
	m.jobsBooked.Inc()
}

func (m *BookingMetrics) IdempotentReplay() {
	if m == nil {
		return
	}
	m.idempotentHits.Inc()
}

func (m *BookingMetrics) DispatchNeeded() {
	if m == nil {
		return
	}
	m.dispatchNeeded.Inc()
}

func (m *BookingMetrics) ProposalSent() {
	if m == nil {
		return
	}
	m.proposalsSent.Inc()
}

func (m *BookingMetrics) ProposalConfirmed() {
	if m == nil {
		return
	}
	m.proposalsClosed.Inc()
}
