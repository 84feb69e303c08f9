package api

import (
	"context"
	"sync"
	"time"

	"consultly/internal/calendar"
	"consultly/internal/domain"
	"consultly/internal/models"

	"github.com/stretchr/testify/mock"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	allow    bool
	saved    int
}

func newFakeSessions(sessions ...*models.Session) *fakeSessions {
	f := &fakeSessions{sessions: make(map[string]*models.Session), allow: true}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessions) SignIn(_ context.Context, token string, role models.Role, profile models.Profile) (*models.Session, error) {
	if token == "" {
		return nil, domain.NewValidationError("token", "is required")
	}
	if role == "" {
		role = models.RoleSeeker
	}
	s := &models.Session{ID: "new-session", Token: token, Role: role, Profile: profile, ExpiresAt: time.Now().Add(time.Hour)}
	f.mu.Lock()
	f.sessions[s.ID] = s
	f.mu.Unlock()
	return s, nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Save(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	f.saved++
	return nil
}

func (f *fakeSessions) SignOut(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) AllowSignIn(context.Context, string, int, time.Duration) (bool, error) {
	return f.allow, nil
}

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) List(ctx context.Context, sess *models.Session, filter models.BookingFilter) (*domain.BookingList, error) {
	args := m.Called(ctx, sess, filter)
	if l := args.Get(0); l != nil {
		sess.LastFilter = &filter
		return l.(*domain.BookingList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) Get(ctx context.Context, sess *models.Session, id string) (*domain.BookingView, error) {
	args := m.Called(ctx, sess, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.BookingView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) Create(ctx context.Context, sess *models.Session, input domain.CreateBookingInput) (*domain.BookingView, error) {
	args := m.Called(ctx, sess, input)
	if v := args.Get(0); v != nil {
		return v.(*domain.BookingView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) MutateStatus(ctx context.Context, sess *models.Session, id string, status models.Status, reason string) (*domain.BookingView, error) {
	args := m.Called(ctx, sess, id, status, reason)
	if v := args.Get(0); v != nil {
		return v.(*domain.BookingView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) AddReview(ctx context.Context, sess *models.Session, id string, rating int, review string) (*domain.BookingView, error) {
	args := m.Called(ctx, sess, id, rating, review)
	if v := args.Get(0); v != nil {
		return v.(*domain.BookingView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) Reschedule(ctx context.Context, sess *models.Session, id string, date models.SessionDate, startTime string) (*domain.BookingView, error) {
	args := m.Called(ctx, sess, id, date, startTime)
	if v := args.Get(0); v != nil {
		return v.(*domain.BookingView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) GetAvailability(ctx context.Context, consultantID string, start, end time.Time) ([]models.AvailabilityDay, error) {
	args := m.Called(ctx, consultantID, start, end)
	if d := args.Get(0); d != nil {
		return d.([]models.AvailabilityDay), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) ForgetSession(sessionID string) {
	m.Called(sessionID)
}

func (m *mockBookings) Collect(ctx context.Context, sess *models.Session, filter models.BookingFilter) ([]domain.BookingView, error) {
	args := m.Called(ctx, sess, filter)
	if v := args.Get(0); v != nil {
		return v.([]domain.BookingView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) Calendar(ctx context.Context, consultantID string, q calendar.Query) (calendar.View, error) {
	args := m.Called(ctx, consultantID, q)
	return args.Get(0).(calendar.View), args.Error(1)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) StartCheckout(ctx context.Context, sess *models.Session, bookingID string) (*domain.Checkout, error) {
	args := m.Called(ctx, sess, bookingID)
	if c := args.Get(0); c != nil {
		return c.(*domain.Checkout), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPayments) Complete(ctx context.Context, sess *models.Session, result models.PaymentVerification) (*models.Booking, error) {
	args := m.Called(ctx, sess, result)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPayments) Dismiss(ctx context.Context, sess *models.Session, orderID string) error {
	return m.Called(ctx, sess, orderID).Error(0)
}

func (m *mockPayments) Refund(ctx context.Context, sess *models.Session, bookingID, reason string) (*models.Booking, error) {
	args := m.Called(ctx, sess, bookingID, reason)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPayments) Methods(ctx context.Context, sess *models.Session) ([]models.PaymentMethod, error) {
	args := m.Called(ctx, sess)
	if v := args.Get(0); v != nil {
		return v.([]models.PaymentMethod), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPayments) Breakdown(ctx context.Context, sess *models.Session, bookingID string) (*models.PaymentBreakdown, error) {
	args := m.Called(ctx, sess, bookingID)
	if v := args.Get(0); v != nil {
		return v.(*models.PaymentBreakdown), args.Error(1)
	}
	return nil, args.Error(1)
}
