package booking

import (
	"fmt"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"
)

type edge struct {
	from models.Status
	to   models.Status
}

// transitions lists every legal edge and who may take it.
var transitions = map[edge][]models.Role{
	{models.StatusPending, models.StatusConfirmed}:     {models.RoleConsultant, models.RoleSystem},
	{models.StatusPending, models.StatusCancelled}:     {models.RoleSeeker, models.RoleConsultant},
	{models.StatusPending, models.StatusRescheduled}:   {models.RoleSeeker, models.RoleConsultant},
	{models.StatusConfirmed, models.StatusCompleted}:   {models.RoleConsultant},
	{models.StatusConfirmed, models.StatusCancelled}:   {models.RoleSeeker, models.RoleConsultant},
	{models.StatusConfirmed, models.StatusNoShow}:      {models.RoleConsultant},
	{models.StatusConfirmed, models.StatusRescheduled}: {models.RoleSeeker, models.RoleConsultant},
}

// IsTransitionAllowed reports whether actor may move a booking from one
// status to another. Eligibility deadlines are not considered here.
func IsTransitionAllowed(from, to models.Status, actor models.Role) bool {
	actors, ok := transitions[edge{from, to}]
	if !ok {
		return false
	}
	for _, a := range actors {
		if a == actor {
			return true
		}
	}
	return false
}

// Machine applies transitions to a local booking value.
type Machine struct {
	policy *Policy
	now    func() time.Time
}

func NewMachine(policy *Policy, now func() time.Time) *Machine {
	if policy == nil {
		policy = NewPolicy(nil, 0)
	}
	if now == nil {
		now = time.Now
	}
	return &Machine{policy: policy, now: now}
}

// Apply moves b to status to. Re-applying a transition the booking already
// went through succeeds without changes; changed reports whether b was
// modified.
func (m *Machine) Apply(b *models.Booking, to models.Status, actor models.Role, reason string) (changed bool, err error) {
	if b.Status == to {
		return false, nil
	}

	from := b.Status
	if from.IsTerminal() {
		return false, fmt.Errorf("%w: booking is already %s", domain.ErrInvalidTransition, from)
	}
	if !IsTransitionAllowed(from, to, actor) {
		return false, fmt.Errorf("%w: %s -> %s by %s", domain.ErrInvalidTransition, from, to, actor)
	}

	switch to {
	case models.StatusCancelled:
		if from == models.StatusConfirmed && !m.policy.CanCancel(b, m.now()) {
			return false, fmt.Errorf("%w: cancellation window closed", domain.ErrInvalidTransition)
		}
		if reason == "" && actor == models.RoleConsultant && from == models.StatusPending {
			reason = models.DefaultDeclineReason
		}
		if reason != "" {
			b.CancellationReason = reason
		}
		b.MeetingLink = nil
	case models.StatusRescheduled:
		if !m.policy.CanReschedule(b) {
			return false, fmt.Errorf("%w: booking cannot be rescheduled", domain.ErrInvalidTransition)
		}
		b.MeetingLink = nil
	}

	b.Status = to
	return true, nil
}

// Review records the one-time rating and review left by the seeker.
func (m *Machine) Review(b *models.Booking, rating int, review string, actor models.Role) error {
	if actor != models.RoleSeeker {
		return fmt.Errorf("%w: only the seeker can review a session", domain.ErrForbidden)
	}
	if b.HasRating() {
		return domain.ErrAlreadyReviewed
	}
	if b.Status != models.StatusCompleted {
		return fmt.Errorf("%w: only completed sessions can be reviewed", domain.ErrInvalidTransition)
	}
	if err := ValidateRating(rating); err != nil {
		return err
	}

	b.Rating = &rating
	b.Review = review
	return nil
}

func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return domain.NewValidationError("rating", "must be between 1 and 5")
	}
	return nil
}
