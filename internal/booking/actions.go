package booking

import (
	"time"

	"consultly/internal/models"
)

// Action is a control a booking screen may expose.
type Action string

const (
	ActionPay        Action = "pay"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionComplete   Action = "complete"
	ActionNoShow     Action = "no_show"
	ActionReview     Action = "review"
)

// AwaitingPayment reports whether the seeker still has to pay.
func AwaitingPayment(b *models.Booking) bool {
	return b.Status == models.StatusPending &&
		(b.PaymentStatus == models.PaymentPending || b.PaymentStatus == models.PaymentFailed)
}

// ActionableForConsultant reports whether a pending booking has been paid for
// and can be approved or rejected.
func ActionableForConsultant(b *models.Booking) bool {
	return b.Status == models.StatusPending && b.PaymentStatus == models.PaymentPaid
}

// Actions lists what role may do with b at now, in display order.
func (p *Policy) Actions(b *models.Booking, role models.Role, now time.Time) []Action {
	var out []Action

	switch role {
	case models.RoleSeeker:
		if AwaitingPayment(b) {
			out = append(out, ActionPay)
		}
		if p.CanReschedule(b) {
			out = append(out, ActionReschedule)
		}
		if p.CanCancel(b, now) {
			out = append(out, ActionCancel)
		}
		if p.CanAddReview(b, true) {
			out = append(out, ActionReview)
		}
	case models.RoleConsultant:
		if ActionableForConsultant(b) {
			out = append(out, ActionApprove, ActionReject)
		}
		if b.Status == models.StatusConfirmed {
			out = append(out, ActionComplete, ActionNoShow)
			if p.CanReschedule(b) {
				out = append(out, ActionReschedule)
			}
			if p.CanCancel(b, now) {
				out = append(out, ActionCancel)
			}
		}
	}

	return out
}

// TargetStatus maps a status-changing action to the status it requests.
func TargetStatus(a Action) (models.Status, bool) {
	switch a {
	case ActionApprove:
		return models.StatusConfirmed, true
	case ActionReject, ActionCancel:
		return models.StatusCancelled, true
	case ActionReschedule:
		return models.StatusRescheduled, true
	case ActionComplete:
		return models.StatusCompleted, true
	case ActionNoShow:
		return models.StatusNoShow, true
	default:
		return "", false
	}
}

func ActionStrings(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}
