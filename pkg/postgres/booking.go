package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// CreateBooking claims one spot on the booking's date and inserts the booking in a single
// transaction. The claim is a conditional increment of booked_count, so two callers racing
// for the last spot cannot both succeed.
func (d *DB) CreateBooking(ctx context.Context, booking *db.Booking, now time.Time) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin booking transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE experience_dates
		SET booked_count = booked_count + 1
		WHERE id = $1 AND booked_count < max_participants AND start_datetime > $2
	`, booking.ExperienceDateID, now.UTC())
	if err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("failed to claim capacity: %w", err)
	}

	if tag.RowsAffected() == 0 {
		claimErr := classifyClaimFailure(ctx, tx, booking.ExperienceDateID, now)
		tx.Rollback(ctx)
		return claimErr
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, user_id, experience_date_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, booking.ID, booking.UserID, booking.ExperienceDateID, string(booking.Status), booking.CreatedAt.UTC())
	if err != nil {
		tx.Rollback(ctx)
		if isUniqueViolation(err) {
			return db.ErrAlreadyBooked
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	return nil
}

// classifyClaimFailure explains why the conditional capacity update matched no row
func classifyClaimFailure(ctx context.Context, tx pgx.Tx, dateID string, now time.Time) error {
	var start time.Time
	err := tx.QueryRow(ctx, `SELECT start_datetime FROM experience_dates WHERE id = $1`, dateID).Scan(&start)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrDateNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read experience date: %w", err)
	}

	if !start.After(now) {
		return db.ErrDateInPast
	}
	return db.ErrCapacityExceeded
}

// CancelBooking marks a confirmed booking as cancelled and releases its spot.
// Returns false without error when the booking was already cancelled.
func (d *DB) CancelBooking(ctx context.Context, bookingID string, now time.Time) (bool, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin cancel transaction: %w", err)
	}

	var dateID string
	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'confirmed'
		RETURNING experience_date_id
	`, bookingID, now.UTC()).Scan(&dateID)

	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		existsErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, bookingID).Scan(&exists)
		tx.Rollback(ctx)
		if existsErr != nil {
			return false, fmt.Errorf("failed to check booking: %w", existsErr)
		}
		if !exists {
			return false, db.ErrBookingNotFound
		}
		return false, nil
	}
	if err != nil {
		tx.Rollback(ctx)
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE experience_dates
		SET booked_count = booked_count - 1
		WHERE id = $1 AND booked_count > 0
	`, dateID)
	if err != nil {
		tx.Rollback(ctx)
		return false, fmt.Errorf("failed to release capacity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return true, nil
}

// GetBooking retrieves a booking by ID
func (d *DB) GetBooking(ctx context.Context, id string) (*db.Booking, error) {
	var b db.Booking
	var status string
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, user_id, experience_date_id, status, created_at, cancelled_at
		FROM bookings
		WHERE id = $1
	`, id).Scan(&b.ID, &b.UserID, &b.ExperienceDateID, &status, &b.CreatedAt, &b.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	b.Status = db.BookingStatus(status)

	return &b, nil
}

// GetConfirmedBookings retrieves all confirmed bookings for an experience date
func (d *DB) GetConfirmedBookings(ctx context.Context, experienceDateID string) ([]db.Booking, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, user_id, experience_date_id, status, created_at, cancelled_at
		FROM bookings
		WHERE experience_date_id = $1 AND status = 'confirmed'
		ORDER BY created_at
	`, experienceDateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		var b db.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.UserID, &b.ExperienceDateID, &status, &b.CreatedAt, &b.CancelledAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Status = db.BookingStatus(status)
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

// CountConfirmedBookings counts confirmed bookings for an experience date
func (d *DB) CountConfirmedBookings(ctx context.Context, experienceDateID string) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings WHERE experience_date_id = $1 AND status = 'confirmed'
	`, experienceDateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}
