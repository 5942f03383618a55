package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

// CancelBooking cancels a booking and frees its spot.
// Cancelling a booking that is already cancelled succeeds without changing anything.
func CancelBooking(ctx context.Context, store db.BookingStore, logger *zap.Logger, now time.Time, bookingID string) error {
	if _, err := uuid.Parse(bookingID); err != nil {
		return fmt.Errorf("%w: booking id %q is not a uuid", db.ErrInvalidInput, bookingID)
	}

	changed, err := store.CancelBooking(ctx, bookingID, now)
	if err != nil {
		return fmt.Errorf("failed to cancel booking %s: %w", bookingID, err)
	}

	if !changed {
		logger.Debug("Booking already cancelled", zap.String("booking_id", bookingID))
		return nil
	}

	metrics.IncBookingCancelled()
	logger.Info("Booking cancelled", zap.String("booking_id", bookingID))

	return nil
}
