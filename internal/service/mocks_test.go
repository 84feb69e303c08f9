package service

import (
	"context"
	"time"

	"consultly/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockBookingAPI struct {
	mock.Mock
}

func (m *mockBookingAPI) CreateBooking(ctx context.Context, token string, req models.CreateBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingAPI) ListMyBookings(ctx context.Context, token string, filter models.BookingFilter) (*models.BookingPage, error) {
	args := m.Called(ctx, token, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingPage), args.Error(1)
}

func (m *mockBookingAPI) GetBooking(ctx context.Context, token, id string) (*models.Booking, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingAPI) UpdateStatus(ctx context.Context, token, id string, status models.Status, reason string) (*models.Booking, error) {
	args := m.Called(ctx, token, id, status, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingAPI) AddReview(ctx context.Context, token, id string, rating int, review string) (*models.Booking, error) {
	args := m.Called(ctx, token, id, rating, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingAPI) Reschedule(ctx context.Context, token, id string, date models.SessionDate, startTime string) (*models.Booking, error) {
	args := m.Called(ctx, token, id, date, startTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingAPI) GetAvailability(ctx context.Context, consultantID string, start, end time.Time) ([]models.AvailabilityDay, error) {
	args := m.Called(ctx, consultantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AvailabilityDay), args.Error(1)
}

func (m *mockBookingAPI) GetConsultant(ctx context.Context, consultantID string) (*models.Consultant, error) {
	args := m.Called(ctx, consultantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Consultant), args.Error(1)
}
