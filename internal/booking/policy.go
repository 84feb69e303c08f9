package booking

import (
	"time"

	"consultly/internal/models"
)

// Policy computes which actions are currently open on a booking. Its answers
// are advisory; the booking API has the final word.
type Policy struct {
	Location     *time.Location
	CancelWindow time.Duration
}

func NewPolicy(loc *time.Location, cancelWindow time.Duration) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	if cancelWindow <= 0 {
		cancelWindow = models.DefaultCancelWindow
	}
	return &Policy{Location: loc, CancelWindow: cancelWindow}
}

func (p *Policy) SessionStart(b *models.Booking) (models.LocalDateTime, error) {
	return b.Start(p.Location)
}

// CancelDeadline is the last instant (exclusive) a cancellation is accepted.
func (p *Policy) CancelDeadline(b *models.Booking) (time.Time, error) {
	start, err := p.SessionStart(b)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(-p.CancelWindow).Time(), nil
}

func (p *Policy) CanCancel(b *models.Booking, now time.Time) bool {
	if b.Status != models.StatusPending && b.Status != models.StatusConfirmed {
		return false
	}
	deadline, err := p.CancelDeadline(b)
	if err != nil {
		return false
	}
	return now.Before(deadline)
}

func (p *Policy) CanReschedule(b *models.Booking) bool {
	return b.Status == models.StatusPending || b.Status == models.StatusConfirmed
}

func (p *Policy) CanAddReview(b *models.Booking, actingAsSeeker bool) bool {
	return b.Status == models.StatusCompleted && actingAsSeeker && !b.HasRating()
}
