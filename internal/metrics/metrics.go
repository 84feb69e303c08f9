package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "consultly"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_transitions_total",
			Help:      "Booking status changes accepted by the booking API.",
		},
		[]string{"from", "to", "actor"},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_outcomes_total",
			Help:      "Checkout outcomes by result.",
		},
		[]string{"outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to the booking and payment APIs.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation", "code"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published on the in-process bus.",
		},
		[]string{"type"},
	)

	staleAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_attempts_abandoned_total",
			Help:      "Checkout attempts expired by the janitor.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, statusTransitions, payments, upstreamDuration, events, staleAttempts)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncTransition(from, to, actor string) {
	statusTransitions.WithLabelValues(from, to, actor).Inc()
}

// IncPayment counts a checkout outcome: started, verified, failed, dismissed, refunded.
func IncPayment(outcome string) {
	payments.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one outbound call. code is the HTTP status, or 0
// when no response arrived.
func ObserveUpstream(service, operation string, code int, elapsed time.Duration) {
	upstreamDuration.WithLabelValues(service, operation, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

func IncEvent(eventType string) {
	events.WithLabelValues(eventType).Inc()
}

func AddAbandonedAttempts(n int64) {
	if n > 0 {
		staleAttempts.Add(float64(n))
	}
}
