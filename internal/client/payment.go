package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"consultly/internal/models"
)

// PaymentClient talks to the payment service that fronts the gateway.
type PaymentClient struct {
	base
	keyID string
}

func NewPaymentClient(baseURL, keyID string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{base: newBase("payment", baseURL, timeout), keyID: keyID}
}

func (c *PaymentClient) CreateOrder(ctx context.Context, token, bookingID string) (*models.PaymentOrder, error) {
	body := struct {
		BookingID string `json:"bookingId"`
	}{BookingID: bookingID}

	var out models.PaymentOrder
	if err := c.doJSON(ctx, "create_order", http.MethodPost, token, "/payments/create-order", body, &out); err != nil {
		return nil, err
	}
	if out.BookingID == "" {
		out.BookingID = bookingID
	}
	if out.Currency == "" {
		out.Currency = models.Currency
	}
	if out.KeyID == "" {
		out.KeyID = c.keyID
	}
	return &out, nil
}

func (c *PaymentClient) Verify(ctx context.Context, token string, v models.PaymentVerification) (*models.VerificationResult, error) {
	var out models.VerificationResult
	if err := c.doJSON(ctx, "verify", http.MethodPost, token, "/payments/verify", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PaymentClient) Methods(ctx context.Context, token string) ([]models.PaymentMethod, error) {
	key := c.cacheKey("methods")
	var out []models.PaymentMethod
	if c.readCache(ctx, key, &out) {
		return out, nil
	}

	if err := c.doGet(ctx, "methods", token, "/payments/methods", &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, out)
	return out, nil
}

func (c *PaymentClient) Breakdown(ctx context.Context, token, bookingID string) (*models.PaymentBreakdown, error) {
	var out models.PaymentBreakdown
	if err := c.doGet(ctx, "breakdown", token, "/payments/breakdown/"+url.PathEscape(bookingID), &out); err != nil {
		return nil, err
	}
	if out.BookingID == "" {
		out.BookingID = bookingID
	}
	return &out, nil
}

func (c *PaymentClient) Refund(ctx context.Context, token string, req models.RefundRequest) (*models.Refund, error) {
	var out models.Refund
	if err := c.doJSON(ctx, "refund", http.MethodPost, token, "/payments/refund", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
