// Package payment drives a checkout from order creation to a verified
// payment and reflects the outcome on the booking.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultly/internal/booking"
	"consultly/internal/domain"
	"consultly/internal/events"
	"consultly/internal/metrics"
	"consultly/internal/models"
	"consultly/internal/money"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Reconciler struct {
	bookings domain.BookingAPI
	payments domain.PaymentAPI
	attempts domain.AttemptStore
	locks    domain.Locker
	eventBus domain.EventPublisher
	validate *validator.Validate
	lockTTL  time.Duration
	logger   *zerolog.Logger
}

func NewReconciler(bookings domain.BookingAPI, payments domain.PaymentAPI, attempts domain.AttemptStore, locks domain.Locker, eventBus domain.EventPublisher, lockTTL time.Duration, logger *zerolog.Logger) *Reconciler {
	if lockTTL <= 0 {
		lockTTL = models.DefaultMutationLockTTL
	}
	return &Reconciler{
		bookings: bookings,
		payments: payments,
		attempts: attempts,
		locks:    locks,
		eventBus: eventBus,
		validate: validator.New(),
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

func requireSeeker(sess *models.Session) error {
	if sess == nil || sess.Token == "" {
		return fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	if !sess.IsSeeker() {
		return fmt.Errorf("%w: only the seeker pays for a booking", domain.ErrForbidden)
	}
	return nil
}

// failureKind tells a gateway decline from a network failure from a
// signature that did not verify.
func failureKind(err error) domain.PaymentFailure {
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		return domain.PaymentNetwork
	case errors.Is(err, domain.ErrPaymentFailed):
		return domain.PaymentDeclined
	default:
		return domain.PaymentVerification
	}
}

func (r *Reconciler) lock(ctx context.Context, bookingID string) (func(), error) {
	if r.locks == nil {
		return func() {}, nil
	}
	key, owner := "booking:"+bookingID, uuid.NewString()
	ok, err := r.locks.TryLock(ctx, key, owner, r.lockTTL)
	if err != nil {
		r.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("mutation guard unavailable")
		return func() {}, nil
	}
	if !ok {
		return nil, domain.ErrMutationInFlight
	}
	return func() {
		if err := r.locks.Unlock(context.WithoutCancel(ctx), key, owner); err != nil {
			r.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("failed to release mutation guard")
		}
	}, nil
}

// StartCheckout opens an order for a booking still awaiting payment and
// returns what the payment widget is opened with.
func (r *Reconciler) StartCheckout(ctx context.Context, sess *models.Session, bookingID string) (*domain.Checkout, error) {
	if err := requireSeeker(sess); err != nil {
		return nil, err
	}

	b, err := r.bookings.GetBooking(ctx, sess.Token, bookingID)
	if err != nil {
		return nil, err
	}
	if b.SeekerID != "" && b.SeekerID != sess.Profile.UserID {
		return nil, fmt.Errorf("%w: booking %s belongs to another seeker", domain.ErrForbidden, bookingID)
	}
	if !booking.AwaitingPayment(b) {
		return nil, fmt.Errorf("%w: booking %s is %s with payment %s", domain.ErrInvalidTransition, bookingID, b.Status, b.PaymentStatus)
	}

	order, err := r.payments.CreateOrder(ctx, sess.Token, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			return nil, domain.NewPaymentError(domain.PaymentNetwork, "", err)
		}
		return nil, err
	}
	if order.Amount == 0 {
		order.Amount = b.Amount
	} else if order.Amount != b.Amount {
		r.logger.Warn().
			Str("booking_id", bookingID).
			Int64("order_amount", order.Amount).
			Int64("booking_amount", b.Amount).
			Msg("order amount differs from booking amount")
	}

	attempt := &models.PaymentAttempt{
		OrderID:   order.OrderID,
		BookingID: bookingID,
		SeekerID:  sess.Profile.UserID,
		Amount:    order.Amount,
	}
	if err := r.attempts.CreatePaymentAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record checkout: %w", err)
	}

	r.logger.Info().
		Str("booking_id", bookingID).
		Str("order_id", order.OrderID).
		Int64("amount", order.Amount).
		Msg("checkout started")

	return &domain.Checkout{
		Order:   *order,
		Prefill: sess.Profile,
		Amount:  money.Format(order.Amount),
	}, nil
}

// Complete verifies what the widget returned. Only a verified payment touches
// the booking; any failure leaves it pending so the seeker can retry.
func (r *Reconciler) Complete(ctx context.Context, sess *models.Session, result models.PaymentVerification) (*models.Booking, error) {
	if err := requireSeeker(sess); err != nil {
		return nil, err
	}
	if err := r.validate.Struct(result); err != nil {
		return nil, domain.NewPaymentError(domain.PaymentVerification, result.OrderID, err)
	}

	attempt, err := r.attempts.GetPaymentAttemptByOrder(ctx, result.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewPaymentError(domain.PaymentVerification, result.OrderID, err)
		}
		return nil, err
	}
	if attempt.SeekerID != sess.Profile.UserID {
		return nil, fmt.Errorf("%w: order %s belongs to another seeker", domain.ErrForbidden, result.OrderID)
	}

	release, err := r.lock(ctx, attempt.BookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	if attempt.Status != models.AttemptPaid {
		verdict, err := r.payments.Verify(ctx, sess.Token, result)
		if err == nil && !verdict.Verified {
			msg := strings.TrimSpace(verdict.Message)
			if msg == "" {
				msg = "signature did not verify"
			}
			err = errors.New(msg)
		}
		if err != nil {
			return nil, r.fail(ctx, attempt, failureKind(err), err)
		}

		if err := r.attempts.UpdatePaymentAttempt(ctx, attempt.OrderID, models.AttemptPaid, result.PaymentID, ""); err != nil {
			r.logger.Error().Err(err).Str("order_id", attempt.OrderID).Msg("failed to record verified payment")
		}
		metrics.IncPayment("verified")
		r.publish(events.EventPaymentVerified, events.PaymentEventPayload{
			BookingID: attempt.BookingID,
			OrderID:   attempt.OrderID,
			PaymentID: result.PaymentID,
			Amount:    attempt.Amount,
		})
		r.logger.Info().
			Str("booking_id", attempt.BookingID).
			Str("order_id", attempt.OrderID).
			Str("payment_id", result.PaymentID).
			Msg("payment verified")
	}

	b, err := r.bookings.GetBooking(ctx, sess.Token, attempt.BookingID)
	if err != nil {
		return nil, err
	}
	return r.confirmPaid(ctx, sess, b), nil
}

// confirmPaid asks for the confirmation a verified payment should trigger
// when the booking API has not made it already. A refusal is not an error:
// the booking stays pending for the consultant to approve.
func (r *Reconciler) confirmPaid(ctx context.Context, sess *models.Session, b *models.Booking) *models.Booking {
	if !booking.ActionableForConsultant(b) {
		return b
	}

	if _, err := r.bookings.UpdateStatus(ctx, sess.Token, b.ID, models.StatusConfirmed, ""); err != nil {
		r.logger.Info().Err(err).Str("booking_id", b.ID).Msg("paid booking left pending for consultant approval")
		return b
	}

	fresh, err := r.bookings.GetBooking(ctx, sess.Token, b.ID)
	if err != nil {
		r.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("reload after confirmation failed")
		return b
	}

	metrics.IncTransition(string(b.Status), string(fresh.Status), string(models.RoleSystem))
	r.publish(events.EventBookingStatusChanged, events.BookingEventPayload{
		BookingID:     fresh.ID,
		DisplayID:     fresh.DisplayID,
		SeekerID:      fresh.SeekerID,
		ConsultantID:  fresh.ConsultantID,
		Status:        string(fresh.Status),
		PaymentStatus: string(fresh.PaymentStatus),
		PrevStatus:    string(b.Status),
		SessionDate:   fresh.SessionDate.String(),
		StartTime:     fresh.StartTime,
		ChangedBy:     string(models.RoleSystem),
	})
	return fresh
}

func (r *Reconciler) fail(ctx context.Context, attempt *models.PaymentAttempt, kind domain.PaymentFailure, cause error) error {
	if err := r.attempts.UpdatePaymentAttempt(ctx, attempt.OrderID, models.AttemptFailed, "", cause.Error()); err != nil {
		r.logger.Error().Err(err).Str("order_id", attempt.OrderID).Msg("failed to record payment failure")
	}
	metrics.IncPayment(string(kind))
	r.publish(events.EventPaymentFailed, events.PaymentEventPayload{
		BookingID: attempt.BookingID,
		OrderID:   attempt.OrderID,
		Amount:    attempt.Amount,
		Reason:    string(kind),
	})
	r.logger.Warn().Err(cause).
		Str("booking_id", attempt.BookingID).
		Str("order_id", attempt.OrderID).
		Str("kind", string(kind)).
		Msg("payment not completed")
	return domain.NewPaymentError(kind, attempt.OrderID, cause)
}

// Dismiss records that the seeker closed the widget without paying.
func (r *Reconciler) Dismiss(ctx context.Context, sess *models.Session, orderID string) error {
	if err := requireSeeker(sess); err != nil {
		return err
	}
	attempt, err := r.attempts.GetPaymentAttemptByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if attempt.SeekerID != sess.Profile.UserID {
		return fmt.Errorf("%w: order %s belongs to another seeker", domain.ErrForbidden, orderID)
	}
	if attempt.Status != models.AttemptCreated {
		return nil
	}

	if err := r.attempts.UpdatePaymentAttempt(ctx, orderID, models.AttemptDismissed, "", ""); err != nil {
		return err
	}
	metrics.IncPayment(string(domain.PaymentDismissed))
	r.publish(events.EventPaymentFailed, events.PaymentEventPayload{
		BookingID: attempt.BookingID,
		OrderID:   orderID,
		Amount:    attempt.Amount,
		Reason:    string(domain.PaymentDismissed),
	})
	return nil
}

// Refund returns the captured payment of a booking in full and reflects the
// resulting status.
func (r *Reconciler) Refund(ctx context.Context, sess *models.Session, bookingID, reason string) (*models.Booking, error) {
	if sess == nil || sess.Token == "" {
		return nil, fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}

	release, err := r.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := r.bookings.GetBooking(ctx, sess.Token, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == models.PaymentRefunded {
		return b, nil
	}
	if b.PaymentStatus != models.PaymentPaid {
		return nil, fmt.Errorf("%w: booking %s has no captured payment", domain.ErrInvalidTransition, bookingID)
	}

	attempt, err := r.attempts.GetLastPaidAttempt(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if attempt.PaymentID == nil || *attempt.PaymentID == "" {
		return nil, fmt.Errorf("paid attempt %s has no payment id: %w", attempt.OrderID, domain.ErrNotFound)
	}

	refund, err := r.payments.Refund(ctx, sess.Token, models.RefundRequest{
		PaymentID: *attempt.PaymentID,
		Amount:    b.Amount,
		Reason:    strings.TrimSpace(reason),
	})
	if err != nil {
		return nil, err
	}

	if err := r.attempts.UpdatePaymentAttempt(ctx, attempt.OrderID, models.AttemptRefunded, "", ""); err != nil {
		r.logger.Error().Err(err).Str("order_id", attempt.OrderID).Msg("failed to record refund")
	}
	metrics.IncPayment("refunded")
	r.publish(events.EventPaymentRefunded, events.PaymentEventPayload{
		BookingID: bookingID,
		OrderID:   attempt.OrderID,
		PaymentID: refund.PaymentID,
		Amount:    refund.Amount,
		Reason:    reason,
	})
	r.logger.Info().Str("booking_id", bookingID).Str("refund_id", refund.RefundID).Msg("payment refunded")

	return r.bookings.GetBooking(ctx, sess.Token, bookingID)
}

func (r *Reconciler) Methods(ctx context.Context, sess *models.Session) ([]models.PaymentMethod, error) {
	if sess == nil || sess.Token == "" {
		return nil, fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	return r.payments.Methods(ctx, sess.Token)
}

func (r *Reconciler) Breakdown(ctx context.Context, sess *models.Session, bookingID string) (*models.PaymentBreakdown, error) {
	if sess == nil || sess.Token == "" {
		return nil, fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	return r.payments.Breakdown(ctx, sess.Token, bookingID)
}

func (r *Reconciler) publish(eventType string, payload interface{}) {
	if r.eventBus == nil {
		return
	}
	if err := r.eventBus.PublishJSON(eventType, payload); err != nil {
		r.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
