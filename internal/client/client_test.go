package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestBookingClientGetBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/bookings/b-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"id":              "b-1",
				"sessionDate":     "2024-06-10",
				"startTime":       "14:00",
				"endTime":         "15:30",
				"sessionDuration": 90,
				"status":          "confirmed",
				"paymentStatus":   "paid",
				"amount":          180000,
			},
		})
	}))
	defer srv.Close()

	c := NewBookingClient(srv.URL, time.Second)
	b, err := c.GetBooking(context.Background(), "tok", "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.Equal(t, models.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, "2024-06-10", b.SessionDate.String())
	assert.Equal(t, int64(180000), b.Amount)
}

func TestBookingClientListSendsFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/my-bookings", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "confirmed", q.Get("status"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "amount", q.Get("sortBy"))
		assert.Equal(t, "asc", q.Get("sortOrder"))
		writeJSON(w, http.StatusOK, map[string]any{
			"bookings":   []any{},
			"pagination": map[string]any{"currentPage": 1, "totalPages": 0, "totalCount": 0, "limit": 10},
		})
	}))
	defer srv.Close()

	f := models.DefaultBookingFilter().WithPage(3).WithStatus(models.StatusConfirmed).WithSort(models.SortByAmount, models.SortAsc)

	c := NewBookingClient(srv.URL, time.Second)
	page, err := c.ListMyBookings(context.Background(), "tok", f)
	require.NoError(t, err)
	assert.NotNil(t, page.Bookings)
	assert.Equal(t, 10, page.Pagination.Limit)
}

func TestBookingClientUpdateStatusBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/bookings/b-1/status", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cancelled", body["status"])
		assert.Equal(t, "sick", body["reason"])
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": "b-1", "status": "cancelled"}})
	}))
	defer srv.Close()

	c := NewBookingClient(srv.URL, time.Second)
	b, err := c.UpdateStatus(context.Background(), "tok", "b-1", models.StatusCancelled, "sick")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, b.Status)
}

func TestBookingClientErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		msg    string
		want   error
	}{
		{"validation", http.StatusBadRequest, "sessionDate is required", domain.ErrValidation},
		{"unauthorized", http.StatusUnauthorized, "token expired", domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, "not your booking", domain.ErrForbidden},
		{"not found", http.StatusNotFound, "booking not found", domain.ErrNotFound},
		{"conflict", http.StatusConflict, "booking is completed", domain.ErrInvalidTransition},
		{"transition message", http.StatusBadRequest, "Invalid transition from completed to cancelled", domain.ErrInvalidTransition},
		{"already reviewed", http.StatusBadRequest, "Booking already reviewed", domain.ErrAlreadyReviewed},
		{"server", http.StatusBadGateway, "upstream down", domain.ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]any{"success": false, "message": tc.msg})
			}))
			defer srv.Close()

			c := NewBookingClient(srv.URL, time.Second)
			_, err := c.UpdateStatus(context.Background(), "tok", "b-1", models.StatusCancelled, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)

			var apiErr *domain.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.msg, apiErr.Message)
			assert.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestBookingClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewBookingClient(url, time.Second)
	_, err := c.GetBooking(context.Background(), "tok", "b-1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestBookingClientAvailabilityCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bookings/consultant/c-1/availability":
			atomic.AddInt32(&calls, 1)
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.Equal(t, "2024-06-01", r.URL.Query().Get("startDate"))
			assert.Equal(t, "2024-06-30", r.URL.Query().Get("endDate"))
			writeJSON(w, http.StatusOK, []map[string]any{
				{"date": "2024-06-12", "availableSlots": []string{"09:00", "10:00"}},
			})
		case "/bookings":
			writeJSON(w, http.StatusCreated, map[string]any{"id": "b-9", "consultantId": "c-1", "status": "pending"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewBookingClient(srv.URL, time.Second)
	c.UseRedisCache(newRedis(t), time.Minute)

	ctx := context.Background()
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	days, err := c.GetAvailability(ctx, "c-1", start, end)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, []string{"09:00", "10:00"}, days[0].AvailableSlots)

	_, err = c.GetAvailability(ctx, "c-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = c.CreateBooking(ctx, "tok", models.CreateBookingRequest{ConsultantID: "c-1"})
	require.NoError(t, err)

	_, err = c.GetAvailability(ctx, "c-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPaymentClient(t *testing.T) {
	var methodCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/create-order":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "b-1", body["bookingId"])
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"orderId": "order_1", "amount": 180000}})
		case "/payments/verify":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"verified": false, "message": "signature mismatch"}})
		case "/payments/methods":
			atomic.AddInt32(&methodCalls, 1)
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "upi", "name": "UPI", "enabled": true}})
		case "/payments/breakdown/b-1":
			writeJSON(w, http.StatusOK, map[string]any{"baseAmount": 180000, "total": 212400, "currency": "INR"})
		case "/payments/refund":
			writeJSON(w, http.StatusPaymentRequired, map[string]any{"message": "refund declined"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewPaymentClient(srv.URL, "rzp_test_key", time.Second)
	c.UseRedisCache(newRedis(t), time.Minute)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, "tok", "b-1")
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.OrderID)
	assert.Equal(t, "b-1", order.BookingID)
	assert.Equal(t, models.Currency, order.Currency)
	assert.Equal(t, "rzp_test_key", order.KeyID)

	res, err := c.Verify(ctx, "tok", models.PaymentVerification{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"})
	require.NoError(t, err)
	assert.False(t, res.Verified)

	for i := 0; i < 2; i++ {
		methods, err := c.Methods(ctx, "tok")
		require.NoError(t, err)
		require.Len(t, methods, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&methodCalls))

	bd, err := c.Breakdown(ctx, "tok", "b-1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", bd.BookingID)
	assert.Equal(t, int64(212400), bd.Total)

	_, err = c.Refund(ctx, "tok", models.RefundRequest{PaymentID: "pay_1", Amount: 180000})
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
}
