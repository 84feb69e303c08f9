package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrAlreadyReviewed   = errors.New("booking already reviewed")
	ErrMutationInFlight  = errors.New("booking update already in progress")
	ErrUnavailable       = errors.New("service unavailable")
	ErrStaleResponse     = errors.New("superseded by a newer request")
)

// ValidationError is raised before any network call when input is incomplete.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// APIError is a failure reported by the booking or payment API. Message is
// the server's text, kept verbatim.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api: http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s api: http %d: %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// PaymentFailure distinguishes why a checkout did not complete.
type PaymentFailure string

const (
	PaymentDeclined     PaymentFailure = "declined"
	PaymentNetwork      PaymentFailure = "network"
	PaymentDismissed    PaymentFailure = "dismissed"
	PaymentVerification PaymentFailure = "verification"
)

type PaymentError struct {
	Kind    PaymentFailure
	OrderID string
	Err     error
}

func NewPaymentError(kind PaymentFailure, orderID string, err error) *PaymentError {
	return &PaymentError{Kind: kind, OrderID: orderID, Err: err}
}

func (e *PaymentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payment %s (order %s)", e.Kind, e.OrderID)
	}
	return fmt.Sprintf("payment %s (order %s): %v", e.Kind, e.OrderID, e.Err)
}

func (e *PaymentError) Is(target error) bool {
	return target == ErrPaymentFailed
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NeedsSignIn reports whether the caller must be sent back to sign-in.
func NeedsSignIn(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// UserMessage turns any error surfaced by the core into text a screen can show.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var payErr *PaymentError
	if errors.As(err, &payErr) {
		switch payErr.Kind {
		case PaymentDeclined:
			return "Your payment was declined. Please try another payment method."
		case PaymentNetwork:
			return "We could not reach the payment service. Check your connection and try again."
		case PaymentDismissed:
			return "Payment was cancelled. Your booking is saved and you can pay at any time."
		case PaymentVerification:
			return "We could not verify your payment. If you were charged, it will be refunded automatically."
		}
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to do this. Please sign in with the right account."
	case errors.Is(err, ErrNotFound):
		return "This booking or consultant no longer exists."
	case errors.Is(err, ErrInvalidTransition):
		if msg := remoteMessage(err); msg != "" {
			return msg
		}
		return "This booking can no longer be changed this way."
	case errors.Is(err, ErrAlreadyReviewed):
		return "You have already reviewed this session."
	case errors.Is(err, ErrMutationInFlight):
		return "Please wait, your previous request is still being processed."
	case errors.Is(err, ErrValidation):
		if msg := remoteMessage(err); msg != "" {
			return msg
		}
		return "Please check the form and try again."
	case errors.Is(err, ErrStaleResponse):
		return "The list changed while loading. Showing the latest results."
	case errors.Is(err, ErrUnavailable):
		return "We could not reach the server. Please try again."
	case errors.Is(err, ErrPaymentFailed):
		return "Payment failed. Please try again."
	}

	return "Something went wrong. Please try again."
}

func remoteMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strings.TrimSpace(apiErr.Message)
	}
	return ""
}
