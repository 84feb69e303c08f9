package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncTransition("pending", "confirmed", "system")
		IncPayment("verified")
		ObserveUpstream("booking", "get_booking", 200, 15*time.Millisecond)
		IncEvent("booking_created")
		AddAbandonedAttempts(0)
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(statusTransitions.WithLabelValues("confirmed", "completed", "consultant"))
	IncTransition("confirmed", "completed", "consultant")
	after := testutil.ToFloat64(statusTransitions.WithLabelValues("confirmed", "completed", "consultant"))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(staleAttempts)
	AddAbandonedAttempts(3)
	AddAbandonedAttempts(-1)
	assert.Equal(t, before+3, testutil.ToFloat64(staleAttempts))
}
