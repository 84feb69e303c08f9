package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"consultly/internal/database"
	"consultly/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, p.NextDelay(3))
	assert.Equal(t, time.Second, p.NextDelay(10))

	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestRunWithRetry(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond}

	calls := 0
	err := runWithRetry(context.Background(), policy, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = runWithRetry(context.Background(), policy, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	err = runWithRetry(ctx, RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSchedulerAdd(t *testing.T) {
	logger := zerolog.Nop()
	s := NewScheduler(time.UTC, &logger)

	assert.NoError(t, s.Add("janitor", "@every 10m", RetryPolicy{}, func(context.Context) error { return nil }))
	assert.Error(t, s.Add("broken", "not a schedule", RetryPolicy{}, func(context.Context) error { return nil }))

	s.Start()
	s.Stop()
}

func TestSchedulerRunsJob(t *testing.T) {
	logger := zerolog.Nop()
	s := NewScheduler(time.UTC, &logger)

	done := make(chan struct{}, 1)
	require.NoError(t, s.Add("tick", "@every 1s", RetryPolicy{}, func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}))
	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestAttemptJanitor(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreatePaymentAttempt(ctx, &models.PaymentAttempt{OrderID: "order_old", BookingID: "b-1", SeekerID: "s-1", Amount: 100}))
	require.NoError(t, db.CreatePaymentAttempt(ctx, &models.PaymentAttempt{OrderID: "order_paid", BookingID: "b-2", SeekerID: "s-1", Amount: 100}))
	require.NoError(t, db.UpdatePaymentAttempt(ctx, "order_paid", models.AttemptPaid, "pay_1", ""))

	j := NewAttemptJanitor(db, time.Hour, &logger)

	// nothing is an hour old yet
	require.NoError(t, j.Run(ctx))
	a, err := db.GetPaymentAttemptByOrder(ctx, "order_old")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCreated, a.Status)

	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, j.Run(ctx))

	a, err = db.GetPaymentAttemptByOrder(ctx, "order_old")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptAbandoned, a.Status)

	a, err = db.GetPaymentAttemptByOrder(ctx, "order_paid")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptPaid, a.Status)
}
