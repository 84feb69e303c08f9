package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"consultly/internal/models"
)

const availabilityDateLayout = "2006-01-02"

// BookingClient talks to the external booking API. It owns no state beyond
// the optional read cache.
type BookingClient struct {
	base
}

func NewBookingClient(baseURL string, timeout time.Duration) *BookingClient {
	return &BookingClient{base: newBase("booking", baseURL, timeout)}
}

func bookingPath(id string, suffix ...string) string {
	p := "/bookings/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (c *BookingClient) CreateBooking(ctx context.Context, token string, req models.CreateBookingRequest) (*models.Booking, error) {
	var out models.Booking
	if err := c.doJSON(ctx, "create_booking", http.MethodPost, token, "/bookings", req, &out); err != nil {
		return nil, err
	}
	c.dropCache(ctx, c.availabilityKeys(ctx, req.ConsultantID)...)
	return &out, nil
}

func (c *BookingClient) ListMyBookings(ctx context.Context, token string, filter models.BookingFilter) (*models.BookingPage, error) {
	path := "/bookings/my-bookings?" + filter.Values().Encode()
	var out models.BookingPage
	if err := c.doGet(ctx, "list_bookings", token, path, &out); err != nil {
		return nil, err
	}
	if out.Bookings == nil {
		out.Bookings = []models.Booking{}
	}
	return &out, nil
}

func (c *BookingClient) GetBooking(ctx context.Context, token, id string) (*models.Booking, error) {
	var out models.Booking
	if err := c.doGet(ctx, "get_booking", token, bookingPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BookingClient) UpdateStatus(ctx context.Context, token, id string, status models.Status, reason string) (*models.Booking, error) {
	body := struct {
		Status models.Status `json:"status"`
		Reason string        `json:"reason,omitempty"`
	}{Status: status, Reason: reason}

	var out models.Booking
	if err := c.doJSON(ctx, "update_status", http.MethodPatch, token, bookingPath(id, "status"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BookingClient) AddReview(ctx context.Context, token, id string, rating int, review string) (*models.Booking, error) {
	body := struct {
		Rating int    `json:"rating"`
		Review string `json:"review,omitempty"`
	}{Rating: rating, Review: review}

	var out models.Booking
	if err := c.doJSON(ctx, "add_review", http.MethodPost, token, bookingPath(id, "review"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BookingClient) Reschedule(ctx context.Context, token, id string, date models.SessionDate, startTime string) (*models.Booking, error) {
	body := struct {
		SessionDate models.SessionDate `json:"sessionDate"`
		StartTime   string             `json:"startTime"`
	}{SessionDate: date, StartTime: startTime}

	var out models.Booking
	if err := c.doJSON(ctx, "reschedule", http.MethodPatch, token, bookingPath(id, "reschedule"), body, &out); err != nil {
		return nil, err
	}
	c.dropCache(ctx, c.availabilityKeys(ctx, out.ConsultantID)...)
	return &out, nil
}

// GetAvailability reads a consultant's open slots between start and end,
// inclusive. No credential is sent.
func (c *BookingClient) GetAvailability(ctx context.Context, consultantID string, start, end time.Time) ([]models.AvailabilityDay, error) {
	from, to := start.Format(availabilityDateLayout), end.Format(availabilityDateLayout)
	q := url.Values{}
	q.Set("startDate", from)
	q.Set("endDate", to)
	path := fmt.Sprintf("/bookings/consultant/%s/availability?%s", url.PathEscape(consultantID), q.Encode())

	key := c.cacheKey("availability", consultantID, from, to)
	var days []models.AvailabilityDay
	if c.readCache(ctx, key, &days) {
		return days, nil
	}

	if err := c.doGet(ctx, "get_availability", "", path, &days); err != nil {
		return nil, err
	}
	if days == nil {
		days = []models.AvailabilityDay{}
	}
	c.writeCache(ctx, key, days)
	c.rememberAvailabilityKey(ctx, consultantID, key)
	return days, nil
}

func (c *BookingClient) GetConsultant(ctx context.Context, consultantID string) (*models.Consultant, error) {
	key := c.cacheKey("consultant", consultantID)
	var out models.Consultant
	if c.readCache(ctx, key, &out) {
		return &out, nil
	}

	if err := c.doGet(ctx, "get_consultant", "", "/consultants/"+url.PathEscape(consultantID), &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, out)
	return &out, nil
}

// Cached availability ranges are tracked per consultant so a booking or
// reschedule can drop them all at once.
func (c *BookingClient) rememberAvailabilityKey(ctx context.Context, consultantID, key string) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	set := c.cacheKey("availability-keys", consultantID)
	pipe := c.redis.TxPipeline()
	pipe.SAdd(ctx, set, key)
	pipe.Expire(ctx, set, c.cacheTTL)
	_, _ = pipe.Exec(ctx)
}

func (c *BookingClient) availabilityKeys(ctx context.Context, consultantID string) []string {
	if c.redis == nil || consultantID == "" {
		return nil
	}
	set := c.cacheKey("availability-keys", consultantID)
	keys, err := c.redis.SMembers(ctx, set).Result()
	if err != nil {
		return nil
	}
	return append(keys, set)
}
