package domain

import (
	"context"
	"time"

	"consultly/internal/models"
)

// BookingAPI is the external booking service. It owns persistence and is the
// source of truth for every transition.
type BookingAPI interface {
	CreateBooking(ctx context.Context, token string, req models.CreateBookingRequest) (*models.Booking, error)
	ListMyBookings(ctx context.Context, token string, filter models.BookingFilter) (*models.BookingPage, error)
	GetBooking(ctx context.Context, token, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, token, id string, status models.Status, reason string) (*models.Booking, error)
	AddReview(ctx context.Context, token, id string, rating int, review string) (*models.Booking, error)
	Reschedule(ctx context.Context, token, id string, date models.SessionDate, startTime string) (*models.Booking, error)
	GetAvailability(ctx context.Context, consultantID string, start, end time.Time) ([]models.AvailabilityDay, error)
	GetConsultant(ctx context.Context, consultantID string) (*models.Consultant, error)
}

// PaymentAPI is the external payment service wrapping the gateway.
type PaymentAPI interface {
	CreateOrder(ctx context.Context, token, bookingID string) (*models.PaymentOrder, error)
	Verify(ctx context.Context, token string, v models.PaymentVerification) (*models.VerificationResult, error)
	Methods(ctx context.Context, token string) ([]models.PaymentMethod, error)
	Breakdown(ctx context.Context, token, bookingID string) (*models.PaymentBreakdown, error)
	Refund(ctx context.Context, token string, req models.RefundRequest) (*models.Refund, error)
}

// AttemptStore journals checkout attempts so a verification callback can be
// matched to the booking it pays for.
type AttemptStore interface {
	CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	GetPaymentAttemptByOrder(ctx context.Context, orderID string) (*models.PaymentAttempt, error)
	UpdatePaymentAttempt(ctx context.Context, orderID string, status models.AttemptStatus, paymentID, lastError string) error
	GetLastPaidAttempt(ctx context.Context, bookingID string) (*models.PaymentAttempt, error)
	ExpireStaleAttempts(ctx context.Context, before time.Time) (int64, error)
}

// SessionRepository stores sessions, short-lived per-booking locks and
// sign-in attempt counters.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, id string) error
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, owner string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Locker guards a single in-flight mutation per booking. Unlock only releases
// a lock still held by owner, so a holder whose lock expired cannot free the
// next holder's.
type Locker interface {
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, owner string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SessionManager interface {
	SignIn(ctx context.Context, token string, role models.Role, profile models.Profile) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	SignOut(ctx context.Context, id string) error
}

type BookingService interface {
	List(ctx context.Context, sess *models.Session, filter models.BookingFilter) (*BookingList, error)
	Get(ctx context.Context, sess *models.Session, id string) (*BookingView, error)
	Create(ctx context.Context, sess *models.Session, input CreateBookingInput) (*BookingView, error)
	MutateStatus(ctx context.Context, sess *models.Session, id string, status models.Status, reason string) (*BookingView, error)
	AddReview(ctx context.Context, sess *models.Session, id string, rating int, review string) (*BookingView, error)
	Reschedule(ctx context.Context, sess *models.Session, id string, date models.SessionDate, startTime string) (*BookingView, error)
	GetAvailability(ctx context.Context, consultantID string, start, end time.Time) ([]models.AvailabilityDay, error)
}

type PaymentService interface {
	StartCheckout(ctx context.Context, sess *models.Session, bookingID string) (*Checkout, error)
	Complete(ctx context.Context, sess *models.Session, result models.PaymentVerification) (*models.Booking, error)
	Dismiss(ctx context.Context, sess *models.Session, orderID string) error
	Refund(ctx context.Context, sess *models.Session, bookingID, reason string) (*models.Booking, error)
	Methods(ctx context.Context, sess *models.Session) ([]models.PaymentMethod, error)
	Breakdown(ctx context.Context, sess *models.Session, bookingID string) (*models.PaymentBreakdown, error)
}

// BookingView is a booking with the actions the acting party may take now.
type BookingView struct {
	models.Booking
	Actions []string `json:"actions"`
}

type BookingList struct {
	Bookings   []BookingView        `json:"bookings"`
	Pagination models.Pagination    `json:"pagination"`
	Filter     models.BookingFilter `json:"filter"`
}

// CreateBookingInput is what a seeker submits from the booking form.
type CreateBookingInput struct {
	ConsultantID    string             `json:"consultantId" validate:"required"`
	SessionDate     string             `json:"sessionDate" validate:"required,datetime=2006-01-02"`
	StartTime       string             `json:"startTime" validate:"required,datetime=15:04"`
	SessionDuration int                `json:"sessionDuration" validate:"required,min=15,max=480"`
	SessionType     models.SessionType `json:"sessionType" validate:"required,oneof=consultation mentoring review coaching other"`
	Description     string             `json:"description" validate:"max=2000"`
}

// Checkout is everything the payment widget needs to open.
type Checkout struct {
	Order   models.PaymentOrder `json:"order"`
	Prefill models.Profile      `json:"prefill"`
	Amount  string              `json:"amountDisplay"`
}
