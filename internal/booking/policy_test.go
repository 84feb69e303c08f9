package booking

import (
	"testing"
	"time"

	"consultly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanCancelBoundary(t *testing.T) {
	p := NewPolicy(time.UTC, 24*time.Hour)
	b := newBooking(models.StatusConfirmed)

	assert.True(t, p.CanCancel(b, time.Date(2024, time.June, 9, 13, 59, 59, 0, time.UTC)))
	assert.False(t, p.CanCancel(b, time.Date(2024, time.June, 9, 14, 0, 0, 0, time.UTC)))
	assert.False(t, p.CanCancel(b, time.Date(2024, time.June, 9, 14, 0, 1, 0, time.UTC)))
}

func TestCanCancelStatuses(t *testing.T) {
	p := NewPolicy(time.UTC, 24*time.Hour)
	now := farBefore()

	for _, s := range allStatuses {
		want := s == models.StatusPending || s == models.StatusConfirmed
		assert.Equal(t, want, p.CanCancel(newBooking(s), now), string(s))
	}
}

func TestCanCancelUsesPolicyLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	p := NewPolicy(kolkata, 24*time.Hour)
	b := newBooking(models.StatusConfirmed)

	// 14:00 IST on 10 June is 08:30 UTC, so the deadline is 9 June 08:30 UTC.
	assert.True(t, p.CanCancel(b, time.Date(2024, time.June, 9, 8, 29, 59, 0, time.UTC)))
	assert.False(t, p.CanCancel(b, time.Date(2024, time.June, 9, 8, 30, 1, 0, time.UTC)))
}

func TestSessionStartKeepsNonMidnightTime(t *testing.T) {
	p := NewPolicy(time.UTC, 0)

	withTime, err := models.ParseSessionDate("2024-06-10T09:15:00Z")
	require.NoError(t, err)
	b := newBooking(models.StatusConfirmed)
	b.SessionDate = withTime

	start, err := p.SessionStart(b)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 10, 9, 15, 0, 0, time.UTC), start.Time())

	midnight, err := models.ParseSessionDate("2024-06-10T00:00:00Z")
	require.NoError(t, err)
	b.SessionDate = midnight

	start, err = p.SessionStart(b)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 10, 14, 0, 0, 0, time.UTC), start.Time())
}

func TestCanCancelInvalidStartTime(t *testing.T) {
	p := NewPolicy(time.UTC, 24*time.Hour)
	b := newBooking(models.StatusConfirmed)
	b.StartTime = "late afternoon"

	assert.False(t, p.CanCancel(b, farBefore()))
}

func TestCanReschedule(t *testing.T) {
	p := NewPolicy(nil, 0)
	for _, s := range allStatuses {
		want := s == models.StatusPending || s == models.StatusConfirmed
		assert.Equal(t, want, p.CanReschedule(newBooking(s)), string(s))
	}
}

func TestCanAddReview(t *testing.T) {
	p := NewPolicy(nil, 0)
	b := newBooking(models.StatusCompleted)

	assert.True(t, p.CanAddReview(b, true))
	assert.False(t, p.CanAddReview(b, false))
	assert.False(t, p.CanAddReview(newBooking(models.StatusConfirmed), true))

	m := NewMachine(p, farBefore)
	require.NoError(t, m.Review(b, 4, "", models.RoleSeeker))
	assert.False(t, p.CanAddReview(b, true))
}

func TestActions(t *testing.T) {
	p := NewPolicy(time.UTC, 24*time.Hour)
	now := farBefore()

	unpaid := newBooking(models.StatusPending)
	unpaid.PaymentStatus = models.PaymentPending
	assert.Equal(t, []Action{ActionPay, ActionReschedule, ActionCancel}, p.Actions(unpaid, models.RoleSeeker, now))
	assert.Empty(t, p.Actions(unpaid, models.RoleConsultant, now))

	paid := newBooking(models.StatusPending)
	assert.Equal(t, []Action{ActionApprove, ActionReject}, p.Actions(paid, models.RoleConsultant, now))

	confirmed := newBooking(models.StatusConfirmed)
	assert.Equal(t,
		[]Action{ActionComplete, ActionNoShow, ActionReschedule, ActionCancel},
		p.Actions(confirmed, models.RoleConsultant, now))

	late := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, []Action{ActionReschedule}, p.Actions(confirmed, models.RoleSeeker, late))

	completed := newBooking(models.StatusCompleted)
	assert.Equal(t, []Action{ActionReview}, p.Actions(completed, models.RoleSeeker, now))
	assert.Empty(t, p.Actions(completed, models.RoleConsultant, now))
}

func TestTargetStatus(t *testing.T) {
	s, ok := TargetStatus(ActionReject)
	assert.True(t, ok)
	assert.Equal(t, models.StatusCancelled, s)

	_, ok = TargetStatus(ActionPay)
	assert.False(t, ok)
}
