package models

import "time"

// PaymentOrder is what the payment service returns for create-order and what
// the checkout widget is opened with.
type PaymentOrder struct {
	OrderID   string `json:"orderId"`
	BookingID string `json:"bookingId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId,omitempty"`
}

// PaymentVerification is the opaque triple the widget hands back on success.
type PaymentVerification struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerificationResult is the payment service's verdict on a triple.
type VerificationResult struct {
	Verified  bool   `json:"verified"`
	BookingID string `json:"bookingId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	Message   string `json:"message,omitempty"`
}

type PaymentMethod struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// PaymentBreakdown itemises what the seeker pays for a booking.
type PaymentBreakdown struct {
	BookingID   string `json:"bookingId"`
	BaseAmount  int64  `json:"baseAmount"`
	PlatformFee int64  `json:"platformFee"`
	Taxes       int64  `json:"taxes"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

type RefundRequest struct {
	PaymentID string `json:"paymentId"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type Refund struct {
	RefundID  string `json:"refundId"`
	PaymentID string `json:"paymentId"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// AttemptStatus tracks one checkout attempt from order to outcome.
type AttemptStatus string

const (
	AttemptCreated   AttemptStatus = "created"
	AttemptPaid      AttemptStatus = "paid"
	AttemptFailed    AttemptStatus = "failed"
	AttemptDismissed AttemptStatus = "dismissed"
	AttemptAbandoned AttemptStatus = "abandoned"
	AttemptRefunded  AttemptStatus = "refunded"
)

// PaymentAttempt is the local journal entry linking an order to a booking.
type PaymentAttempt struct {
	ID        int64         `json:"id"`
	OrderID   string        `json:"order_id"`
	BookingID string        `json:"booking_id"`
	SeekerID  string        `json:"seeker_id"`
	Amount    int64         `json:"amount"`
	Status    AttemptStatus `json:"status"`
	PaymentID *string       `json:"payment_id"`
	LastError *string       `json:"last_error"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
