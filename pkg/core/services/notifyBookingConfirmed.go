package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// DefaultNotifyTimeout bounds the whole background work for one booking notification
const DefaultNotifyTimeout = time.Minute

// ConfirmationTrigger sends booking confirmation emails in the background and, when a
// queue is configured, schedules the booking's reminder
type ConfirmationTrigger struct {
	store   db.NotificationStore
	mailer  Mailer
	queue   ReminderQueue
	logger  *zap.Logger
	opts    MailOptions
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewConfirmationTrigger creates a trigger. queue may be nil to disable reminder scheduling.
func NewConfirmationTrigger(
	store db.NotificationStore,
	mailer Mailer,
	queue ReminderQueue,
	logger *zap.Logger,
	opts MailOptions,
	timeout time.Duration,
) *ConfirmationTrigger {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &ConfirmationTrigger{
		store:   store,
		mailer:  mailer,
		queue:   queue,
		logger:  logger,
		opts:    opts,
		timeout: timeout,
		now:     time.Now,
	}
}

// NotifyBookingConfirmed starts the confirmation work for a booking and returns at once.
// Failures are logged and never reach the caller.
func (t *ConfirmationTrigger) NotifyBookingConfirmed(bookingID string) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("Booking notification panicked",
					zap.String("booking_id", bookingID),
					zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if err := t.notify(ctx, bookingID); err != nil {
			t.logger.Warn("Booking notification failed",
				zap.String("booking_id", bookingID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all in-flight notifications have finished
func (t *ConfirmationTrigger) Wait() {
	t.wg.Wait()
}

func (t *ConfirmationTrigger) notify(ctx context.Context, bookingID string) error {
	now := t.now()

	booking, err := t.store.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}

	date, err := t.store.GetExperienceDate(ctx, booking.ExperienceDateID)
	if err != nil {
		return fmt.Errorf("failed to get experience date: %w", err)
	}

	settings, err := resolveEmailSettings(ctx, t.store, date.CompanyID)
	if err != nil {
		return err
	}

	var sendErr error
	if settings.ConfirmationEnabled {
		outcome, err := deliverBookingEmail(ctx, t.store, t.mailer, t.logger, t.opts, db.EmailBookingConfirmation, *booking, *date, now)
		recordOutcome(db.EmailBookingConfirmation, outcome)
		if err != nil {
			sendErr = fmt.Errorf("failed to send confirmation: %w", err)
		} else {
			t.logger.Info("Booking confirmation handled",
				zap.String("booking_id", bookingID),
				zap.String("outcome", string(outcome)))
		}
	} else {
		t.logger.Debug("Confirmation emails disabled for company", zap.String("booking_id", bookingID))
	}

	if t.queue != nil {
		if _, _, err := ScheduleReminder(ctx, t.queue, t.store, t.logger, *booking, now); err != nil {
			t.logger.Warn("Failed to schedule reminder, the sweep will still cover it",
				zap.String("booking_id", bookingID),
				zap.Error(err))
		}
	}

	return sendErr
}
