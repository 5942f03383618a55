package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// HasBeenSent reports whether a delivery log entry exists for the booking and email type
func (d *DB) HasBeenSent(ctx context.Context, bookingID string, emailType db.EmailType) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_log WHERE booking_id = $1 AND email_type = $2
		)
	`, bookingID, string(emailType)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check delivery log: %w", err)
	}
	return exists, nil
}

// RecordSent appends a delivery log entry. A second entry for the same booking and
// email type is ignored, so overlapping passes never fail on the write.
func (d *DB) RecordSent(ctx context.Context, entry db.DeliveryLogEntry) error {
	if entry.Status != db.DeliverySent && entry.Status != db.DeliverySimulated {
		return fmt.Errorf("%w: delivery status %q is not recordable", db.ErrInvalidInput, entry.Status)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	var deliveryID *string
	if entry.DeliveryID != "" {
		deliveryID = &entry.DeliveryID
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO delivery_log (id, booking_id, email_type, status, sent_at, delivery_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (booking_id, email_type) DO NOTHING
	`, entry.ID, entry.BookingID, string(entry.EmailType), string(entry.Status), entry.SentAt.UTC(), deliveryID)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}
