package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))

	assert.Equal(t, "rating: must be between 1 and 5", UserMessage(NewValidationError("rating", "must be between 1 and 5")))
	assert.Equal(t, "Your session has expired. Please sign in again.", UserMessage(fmt.Errorf("load: %w", ErrUnauthorized)))
	assert.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("boom")))

	remote := &APIError{Service: "booking", StatusCode: 409, Message: " Booking already completed ", Kind: ErrInvalidTransition}
	assert.Equal(t, "Booking already completed", UserMessage(remote))

	bare := &APIError{Service: "booking", StatusCode: 409, Kind: ErrInvalidTransition}
	assert.Equal(t, "This booking can no longer be changed this way.", UserMessage(bare))
}

func TestUserMessagePaymentKinds(t *testing.T) {
	for _, kind := range []PaymentFailure{PaymentDeclined, PaymentNetwork, PaymentDismissed, PaymentVerification} {
		err := NewPaymentError(kind, "order_1", nil)
		msg := UserMessage(err)
		assert.NotEmpty(t, msg)
		assert.NotEqual(t, UserMessage(ErrPaymentFailed), msg, kind)
		assert.ErrorIs(t, err, ErrPaymentFailed)
	}

	wrapped := NewPaymentError(PaymentNetwork, "order_1", ErrUnavailable)
	assert.ErrorIs(t, wrapped, ErrUnavailable)
	assert.Contains(t, wrapped.Error(), "order_1")
}

func TestNeedsSignIn(t *testing.T) {
	assert.True(t, NeedsSignIn(ErrUnauthorized))
	assert.True(t, NeedsSignIn(&APIError{StatusCode: 403, Kind: ErrForbidden}))
	assert.False(t, NeedsSignIn(ErrNotFound))
	assert.False(t, NeedsSignIn(nil))
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("", "invalid JSON body")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid JSON body", err.Error())
}
