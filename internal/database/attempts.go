package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"
)

const attemptColumns = `id, order_id, booking_id, seeker_id, amount, status, payment_id, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	var paymentID, lastError sql.NullString
	err := row.Scan(
		&a.ID, &a.OrderID, &a.BookingID, &a.SeekerID, &a.Amount, &a.Status,
		&paymentID, &lastError, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentID.Valid {
		a.PaymentID = &paymentID.String
	}
	if lastError.Valid {
		a.LastError = &lastError.String
	}
	return &a, nil
}

func (db *DB) CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	now := time.Now().UTC()
	if attempt.Status == "" {
		attempt.Status = models.AttemptCreated
	}

	query := `INSERT INTO payment_attempts (order_id, booking_id, seeker_id, amount, status, payment_id, last_error, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		attempt.OrderID,
		attempt.BookingID,
		attempt.SeekerID,
		attempt.Amount,
		attempt.Status,
		attempt.PaymentID,
		attempt.LastError,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	attempt.ID = id
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	return nil
}

func (db *DB) GetPaymentAttemptByOrder(ctx context.Context, orderID string) (*models.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE order_id = ?`
	a, err := scanAttempt(db.QueryRowContext(ctx, query, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment attempt for order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment attempt: %w", err)
	}
	return a, nil
}

// UpdatePaymentAttempt records the outcome of an attempt. Empty paymentID or
// lastError leave the stored values untouched.
func (db *DB) UpdatePaymentAttempt(ctx context.Context, orderID string, status models.AttemptStatus, paymentID, lastError string) error {
	query := `UPDATE payment_attempts
              SET status = ?,
                  payment_id = COALESCE(NULLIF(?, ''), payment_id),
                  last_error = COALESCE(NULLIF(?, ''), last_error),
                  updated_at = ?
              WHERE order_id = ?`
	result, err := db.ExecContext(ctx, query, status, paymentID, lastError, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("failed to update payment attempt: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update payment attempt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("payment attempt for order %s: %w", orderID, domain.ErrNotFound)
	}
	return nil
}

// GetLastPaidAttempt returns the most recent paid attempt of a booking; its
// payment id is what a refund is issued against.
func (db *DB) GetLastPaidAttempt(ctx context.Context, bookingID string) (*models.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts
              WHERE booking_id = ? AND status = ?
              ORDER BY updated_at DESC, id DESC LIMIT 1`
	a, err := scanAttempt(db.QueryRowContext(ctx, query, bookingID, models.AttemptPaid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("paid attempt for booking %s: %w", bookingID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get paid attempt: %w", err)
	}
	return a, nil
}

func (db *DB) ListPaymentAttempts(ctx context.Context, bookingID string) ([]models.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE booking_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.PaymentAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ExpireStaleAttempts marks attempts still open since before the cutoff as
// abandoned and reports how many were changed.
func (db *DB) ExpireStaleAttempts(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE payment_attempts SET status = ?, updated_at = ? WHERE status = ? AND created_at < ?`
	result, err := db.ExecContext(ctx, query, models.AttemptAbandoned, time.Now().UTC(), models.AttemptCreated, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire payment attempts: %w", err)
	}
	return result.RowsAffected()
}
