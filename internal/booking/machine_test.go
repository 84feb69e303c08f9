package booking

import (
	"errors"
	"testing"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []models.Status{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusCompleted,
	models.StatusCancelled,
	models.StatusNoShow,
	models.StatusRescheduled,
}

func newBooking(status models.Status) *models.Booking {
	link := "https://zoom.us/j/123"
	return &models.Booking{
		ID:              "b-1",
		SessionDate:     models.NewSessionDate(2024, time.June, 10),
		StartTime:       "14:00",
		EndTime:         "15:00",
		SessionDuration: 60,
		Status:          status,
		PaymentStatus:   models.PaymentPaid,
		MeetingLink:     &link,
	}
}

func farBefore() time.Time {
	return time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
}

func TestIsTransitionAllowed(t *testing.T) {
	legal := map[[2]models.Status]bool{
		{models.StatusPending, models.StatusConfirmed}:     true,
		{models.StatusPending, models.StatusCancelled}:     true,
		{models.StatusPending, models.StatusRescheduled}:   true,
		{models.StatusConfirmed, models.StatusCompleted}:   true,
		{models.StatusConfirmed, models.StatusCancelled}:   true,
		{models.StatusConfirmed, models.StatusNoShow}:      true,
		{models.StatusConfirmed, models.StatusRescheduled}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			anyActor := IsTransitionAllowed(from, to, models.RoleSeeker) ||
				IsTransitionAllowed(from, to, models.RoleConsultant) ||
				IsTransitionAllowed(from, to, models.RoleSystem)
			assert.Equal(t, legal[[2]models.Status{from, to}], anyActor, "%s -> %s", from, to)
		}
	}

	assert.False(t, IsTransitionAllowed(models.StatusConfirmed, models.StatusCompleted, models.RoleSeeker))
	assert.False(t, IsTransitionAllowed(models.StatusConfirmed, models.StatusNoShow, models.RoleSeeker))
	assert.False(t, IsTransitionAllowed(models.StatusPending, models.StatusConfirmed, models.RoleSeeker))
	assert.True(t, IsTransitionAllowed(models.StatusPending, models.StatusConfirmed, models.RoleSystem))
}

func TestMachineApply(t *testing.T) {
	m := NewMachine(NewPolicy(time.UTC, 24*time.Hour), farBefore)

	t.Run("illegal edges fail", func(t *testing.T) {
		for _, from := range allStatuses {
			for _, to := range allStatuses {
				if from == to || IsTransitionAllowed(from, to, models.RoleConsultant) {
					continue
				}
				b := newBooking(from)
				changed, err := m.Apply(b, to, models.RoleConsultant, "")
				require.Error(t, err, "%s -> %s", from, to)
				assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
				assert.False(t, changed)
				assert.Equal(t, from, b.Status)
			}
		}
	})

	t.Run("terminal states reject everything", func(t *testing.T) {
		for _, from := range []models.Status{models.StatusCompleted, models.StatusCancelled, models.StatusNoShow} {
			_, err := m.Apply(newBooking(from), models.StatusConfirmed, models.RoleConsultant, "")
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Contains(t, err.Error(), "already "+string(from))
		}
	})

	t.Run("consultant approves", func(t *testing.T) {
		b := newBooking(models.StatusPending)
		changed, err := m.Apply(b, models.StatusConfirmed, models.RoleConsultant, "")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.StatusConfirmed, b.Status)
	})

	t.Run("retry of applied transition is a quiet success", func(t *testing.T) {
		b := newBooking(models.StatusConfirmed)
		changed, err := m.Apply(b, models.StatusConfirmed, models.RoleConsultant, "")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("consultant rejection gets default reason", func(t *testing.T) {
		b := newBooking(models.StatusPending)
		_, err := m.Apply(b, models.StatusCancelled, models.RoleConsultant, "")
		require.NoError(t, err)
		assert.Equal(t, models.DefaultDeclineReason, b.CancellationReason)
		assert.Nil(t, b.MeetingLink)
	})

	t.Run("seeker cancellation keeps given reason", func(t *testing.T) {
		b := newBooking(models.StatusPending)
		_, err := m.Apply(b, models.StatusCancelled, models.RoleSeeker, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, "plans changed", b.CancellationReason)
	})

	t.Run("confirmed cancel inside window is refused", func(t *testing.T) {
		late := NewMachine(NewPolicy(time.UTC, 24*time.Hour), func() time.Time {
			return time.Date(2024, time.June, 9, 20, 0, 0, 0, time.UTC)
		})
		b := newBooking(models.StatusConfirmed)
		_, err := late.Apply(b, models.StatusCancelled, models.RoleSeeker, "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, models.StatusConfirmed, b.Status)
		assert.NotNil(t, b.MeetingLink)
	})

	t.Run("reschedule clears meeting link", func(t *testing.T) {
		b := newBooking(models.StatusConfirmed)
		_, err := m.Apply(b, models.StatusRescheduled, models.RoleSeeker, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRescheduled, b.Status)
		assert.Nil(t, b.MeetingLink)
	})
}

func TestMachineReview(t *testing.T) {
	m := NewMachine(nil, farBefore)
	b := newBooking(models.StatusCompleted)

	err := m.Review(b, 5, "great", models.RoleConsultant)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = m.Review(b, 6, "", models.RoleSeeker)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, b.HasRating())

	require.NoError(t, m.Review(b, 5, "great", models.RoleSeeker))
	require.NotNil(t, b.Rating)
	assert.Equal(t, 5, *b.Rating)
	assert.Equal(t, "great", b.Review)

	err = m.Review(b, 4, "again", models.RoleSeeker)
	assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)
	assert.Equal(t, 5, *b.Rating)

	pending := newBooking(models.StatusConfirmed)
	err = m.Review(pending, 4, "", models.RoleSeeker)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
