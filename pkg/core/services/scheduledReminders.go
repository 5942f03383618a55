package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

// DefaultRetryDelay is how long a failed scheduled reminder waits before the next attempt
const DefaultRetryDelay = 10 * time.Minute

// ReminderQueue stores one pending reminder per booking, keyed by its fire time
type ReminderQueue interface {
	Schedule(ctx context.Context, bookingID string, fireAt time.Time) error
	Due(ctx context.Context, now time.Time, limit int64) ([]string, error)
	Claim(ctx context.Context, bookingID string) (bool, error)
}

// ReminderFireAt returns when a reminder for the date should be sent
func ReminderFireAt(date db.ExperienceDate, hoursBefore int) time.Time {
	return date.StartDatetime.Add(-time.Duration(hoursBefore) * time.Hour)
}

// ScheduleReminder enqueues a reminder for the booking at its company's lead time.
// Nothing is scheduled when reminders are disabled or the fire time has passed.
func ScheduleReminder(
	ctx context.Context,
	queue ReminderQueue,
	store db.NotificationStore,
	logger *zap.Logger,
	booking db.Booking,
	now time.Time,
) (time.Time, bool, error) {
	date, err := store.GetExperienceDate(ctx, booking.ExperienceDateID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get experience date %s: %w", booking.ExperienceDateID, err)
	}

	settings, err := resolveEmailSettings(ctx, store, date.CompanyID)
	if err != nil {
		return time.Time{}, false, err
	}
	if !settings.ReminderEnabled {
		logger.Debug("Reminders disabled, not scheduling", zap.String("booking_id", booking.ID))
		return time.Time{}, false, nil
	}

	fireAt := ReminderFireAt(*date, settings.ReminderHoursBefore)
	if !fireAt.After(now) {
		logger.Debug("Reminder time already passed, not scheduling",
			zap.String("booking_id", booking.ID),
			zap.Time("fire_at", fireAt))
		return fireAt, false, nil
	}

	if err := queue.Schedule(ctx, booking.ID, fireAt); err != nil {
		return fireAt, false, fmt.Errorf("failed to schedule reminder for %s: %w", booking.ID, err)
	}

	logger.Debug("Reminder scheduled",
		zap.String("booking_id", booking.ID),
		zap.Time("fire_at", fireAt))

	return fireAt, true, nil
}

// SendScheduledReminder sends the reminder for one booking taken from the queue.
// Bookings that were cancelled, whose date has started, or whose company disabled
// reminders are dropped.
func SendScheduledReminder(
	ctx context.Context,
	store db.NotificationStore,
	mailer Mailer,
	logger *zap.Logger,
	opts MailOptions,
	bookingID string,
	now time.Time,
) (DeliveryOutcome, error) {
	booking, err := store.GetBooking(ctx, bookingID)
	if errors.Is(err, db.ErrBookingNotFound) {
		return OutcomeDropped, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to get booking %s: %w", bookingID, err)
	}
	if booking.Status != db.BookingConfirmed {
		logger.Debug("Dropping reminder for cancelled booking", zap.String("booking_id", bookingID))
		return OutcomeDropped, nil
	}

	date, err := store.GetExperienceDate(ctx, booking.ExperienceDateID)
	if errors.Is(err, db.ErrDateNotFound) {
		return OutcomeDropped, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to get experience date %s: %w", booking.ExperienceDateID, err)
	}
	if !date.StartDatetime.After(now) {
		logger.Debug("Dropping reminder for a date that has started", zap.String("booking_id", bookingID))
		return OutcomeDropped, nil
	}

	settings, err := resolveEmailSettings(ctx, store, date.CompanyID)
	if err != nil {
		return OutcomeFailed, err
	}
	if !settings.ReminderEnabled {
		return OutcomeDropped, nil
	}

	return deliverBookingEmail(ctx, store, mailer, logger, opts, db.EmailBookingReminder, *booking, *date, now)
}

// DrainDueReminders sends every reminder whose fire time has come.
// A job is claimed before it is sent so concurrent drainers never share one.
// Failed sends are put back on the queue retryDelay later.
func DrainDueReminders(
	ctx context.Context,
	queue ReminderQueue,
	store db.NotificationStore,
	mailer Mailer,
	logger *zap.Logger,
	opts MailOptions,
	now time.Time,
	batchSize int64,
	retryDelay time.Duration,
) (*ReminderSummary, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveReminderPass("drain", time.Since(started).Seconds())
	}()

	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	due, err := queue.Due(ctx, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due reminders: %w", err)
	}
	logger.Debug("Found due reminders", zap.Int("count", len(due)))

	summary := &ReminderSummary{}
	for _, bookingID := range due {
		claimed, err := queue.Claim(ctx, bookingID)
		if err != nil {
			logger.Warn("Failed to claim reminder", zap.String("booking_id", bookingID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		outcome, err := SendScheduledReminder(ctx, store, mailer, logger, opts, bookingID, now)
		recordOutcome(db.EmailBookingReminder, outcome)

		switch outcome {
		case OutcomeSent:
			summary.EmailsSent++
		case OutcomeSkipped, OutcomeDropped:
			summary.EmailsSkipped++
		default:
			summary.EmailsFailed++
			logger.Warn("Scheduled reminder failed, rescheduling",
				zap.String("booking_id", bookingID),
				zap.Duration("retry_in", retryDelay),
				zap.Error(err))
			if err := queue.Schedule(ctx, bookingID, now.Add(retryDelay)); err != nil {
				logger.Error("Failed to reschedule reminder", zap.String("booking_id", bookingID), zap.Error(err))
			}
		}
	}

	if len(due) > 0 {
		logger.Info("Reminder queue drained",
			zap.Int("emails_sent", summary.EmailsSent),
			zap.Int("emails_skipped", summary.EmailsSkipped),
			zap.Int("emails_failed", summary.EmailsFailed))
	}

	return summary, nil
}
