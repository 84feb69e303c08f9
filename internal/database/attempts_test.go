package database

import (
	"context"
	"testing"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentAttemptLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	attempt := &models.PaymentAttempt{
		OrderID:   "order_1",
		BookingID: "b-1",
		SeekerID:  "s-1",
		Amount:    180000,
	}
	require.NoError(t, db.CreatePaymentAttempt(ctx, attempt))
	assert.NotZero(t, attempt.ID)
	assert.Equal(t, models.AttemptCreated, attempt.Status)

	got, err := db.GetPaymentAttemptByOrder(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", got.BookingID)
	assert.Equal(t, int64(180000), got.Amount)
	assert.Nil(t, got.PaymentID)

	_, err = db.GetLastPaidAttempt(ctx, "b-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, db.UpdatePaymentAttempt(ctx, "order_1", models.AttemptFailed, "pay_1", "signature mismatch"))
	got, err = db.GetPaymentAttemptByOrder(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "signature mismatch", *got.LastError)

	// a retry on the same order keeps the earlier error text
	require.NoError(t, db.UpdatePaymentAttempt(ctx, "order_1", models.AttemptPaid, "pay_2", ""))
	paid, err := db.GetLastPaidAttempt(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentID)
	assert.Equal(t, "pay_2", *paid.PaymentID)
	assert.Equal(t, "signature mismatch", *paid.LastError)

	err = db.UpdatePaymentAttempt(ctx, "missing", models.AttemptPaid, "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = db.GetPaymentAttemptByOrder(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentAttemptDuplicateOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	a := models.PaymentAttempt{OrderID: "order_1", BookingID: "b-1", SeekerID: "s-1", Amount: 1}
	require.NoError(t, db.CreatePaymentAttempt(ctx, &a))

	b := a
	assert.Error(t, db.CreatePaymentAttempt(ctx, &b))
}

func TestExpireStaleAttempts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	for _, order := range []string{"order_1", "order_2", "order_3"} {
		require.NoError(t, db.CreatePaymentAttempt(ctx, &models.PaymentAttempt{
			OrderID: order, BookingID: "b-1", SeekerID: "s-1", Amount: 100,
		}))
	}
	require.NoError(t, db.UpdatePaymentAttempt(ctx, "order_3", models.AttemptPaid, "pay_3", ""))

	n, err := db.ExpireStaleAttempts(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = db.ExpireStaleAttempts(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	attempts, err := db.ListPaymentAttempts(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, models.AttemptAbandoned, attempts[0].Status)
	assert.Equal(t, models.AttemptAbandoned, attempts[1].Status)
	assert.Equal(t, models.AttemptPaid, attempts[2].Status)
}
