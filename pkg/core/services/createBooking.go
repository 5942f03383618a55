package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

// BookingNotifier is told about every booking that was created successfully
type BookingNotifier interface {
	NotifyBookingConfirmed(bookingID string)
}

// CreateBooking books a spot on an experience date for a user.
// Capacity, duplicate and past-date checks are enforced atomically by the store.
// On success the notifier is called without waiting for it.
func CreateBooking(
	ctx context.Context,
	store db.BookingStore,
	notifier BookingNotifier,
	logger *zap.Logger,
	now time.Time,
	userID string,
	experienceDateID string,
) (*db.Booking, error) {
	userID = strings.TrimSpace(userID)
	experienceDateID = strings.TrimSpace(experienceDateID)
	if userID == "" || experienceDateID == "" {
		metrics.IncBookingCreated("invalid")
		return nil, fmt.Errorf("%w: user_id and experience_date_id are required", db.ErrInvalidInput)
	}

	logger.Debug("Creating booking",
		zap.String("user_id", userID),
		zap.String("experience_date_id", experienceDateID))

	booking := &db.Booking{
		ID:               uuid.NewString(),
		UserID:           userID,
		ExperienceDateID: experienceDateID,
		Status:           db.BookingConfirmed,
		CreatedAt:        now.UTC(),
	}

	if err := store.CreateBooking(ctx, booking, now); err != nil {
		outcome := bookingFailureOutcome(err)
		metrics.IncBookingCreated(outcome)
		if outcome == "error" {
			return nil, fmt.Errorf("failed to create booking: %w", err)
		}

		logger.Info("Booking rejected",
			zap.String("user_id", userID),
			zap.String("experience_date_id", experienceDateID),
			zap.String("reason", outcome))
		return nil, err
	}

	metrics.IncBookingCreated("confirmed")
	logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("user_id", userID),
		zap.String("experience_date_id", experienceDateID))

	if notifier != nil {
		notifier.NotifyBookingConfirmed(booking.ID)
	}

	return booking, nil
}

// bookingFailureOutcome maps a store error to a metrics label
func bookingFailureOutcome(err error) string {
	switch {
	case errors.Is(err, db.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, db.ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, db.ErrDateNotFound):
		return "date_not_found"
	case errors.Is(err, db.ErrDateInPast):
		return "date_in_past"
	default:
		return "error"
	}
}
