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

// DefaultLookAhead is how far ahead the reminder sweep scans for upcoming dates
const DefaultLookAhead = 48 * time.Hour

// ReminderSummary reports what a reminder pass did
type ReminderSummary struct {
	EmailsSent    int `json:"emails_sent"`
	EmailsSkipped int `json:"emails_skipped"`
	EmailsFailed  int `json:"emails_failed"`
}

// ReminderOptions configures a reminder sweep
type ReminderOptions struct {
	Mail      MailOptions
	LookAhead time.Duration
}

// SendBookingReminders scans dates starting within the look-ahead window and sends one
// reminder per confirmed booking whose date is inside its company's reminder window.
// It is safe to run repeatedly and concurrently; the delivery log suppresses duplicates.
// Only a failure to load settings or upcoming dates aborts the pass.
func SendBookingReminders(
	ctx context.Context,
	store db.ReminderStore,
	mailer Mailer,
	logger *zap.Logger,
	opts ReminderOptions,
	now time.Time,
) (*ReminderSummary, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveReminderPass("sweep", time.Since(started).Seconds())
	}()

	lookAhead := opts.LookAhead
	if lookAhead <= 0 {
		lookAhead = DefaultLookAhead
	}

	logger.Debug("Starting reminder sweep",
		zap.Time("now", now),
		zap.Duration("look_ahead", lookAhead))

	// Step 1: Load settings by company
	allSettings, err := store.GetEmailSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch email settings: %w", err)
	}

	settingsByCompany := make(map[string]db.EmailSettings, len(allSettings))
	for _, s := range allSettings {
		settingsByCompany[s.CompanyID] = s
		if s.ReminderEnabled && time.Duration(s.ReminderHoursBefore)*time.Hour > lookAhead {
			logger.Warn("Reminder lead time exceeds sweep look-ahead, dates will only be reminded via the delay queue",
				zap.String("company_id", s.CompanyID),
				zap.Int("reminder_hours_before", s.ReminderHoursBefore),
				zap.Duration("look_ahead", lookAhead))
		}
	}
	logger.Debug("Loaded email settings", zap.Int("count", len(settingsByCompany)))

	// Step 2: Fetch upcoming dates
	dates, err := store.GetDatesStartingBetween(ctx, now, now.Add(lookAhead))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upcoming experience dates: %w", err)
	}
	logger.Debug("Found upcoming dates", zap.Int("count", len(dates)))

	summary := &ReminderSummary{}

	// Step 3: Send reminders for dates inside their window
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			logger.Warn("Reminder sweep interrupted", zap.Error(err))
			break
		}

		settings := settingsForDate(settingsByCompany, date)
		if !settings.ReminderEnabled {
			logger.Debug("Reminders disabled for company",
				zap.String("experience_date_id", date.ID),
				zap.String("company_id", settings.CompanyID))
			continue
		}

		if !IsReminderDue(date.StartDatetime, now, settings.ReminderHoursBefore) {
			continue
		}

		bookings, err := store.GetConfirmedBookings(ctx, date.ID)
		if err != nil {
			logger.Error("Failed to fetch bookings for date",
				zap.String("experience_date_id", date.ID),
				zap.Error(err))
			continue
		}

		logger.Debug("Date is due reminders",
			zap.String("experience_date_id", date.ID),
			zap.Int("bookings", len(bookings)))

		for _, booking := range bookings {
			outcome, err := deliverBookingEmail(ctx, store, mailer, logger, opts.Mail, db.EmailBookingReminder, booking, date, now)
			recordOutcome(db.EmailBookingReminder, outcome)

			switch outcome {
			case OutcomeSent:
				summary.EmailsSent++
			case OutcomeSkipped:
				summary.EmailsSkipped++
			default:
				summary.EmailsFailed++
				logReminderFailure(logger, booking, err)
			}
		}
	}

	logger.Info("Reminder sweep completed",
		zap.Int("emails_sent", summary.EmailsSent),
		zap.Int("emails_skipped", summary.EmailsSkipped),
		zap.Int("emails_failed", summary.EmailsFailed))

	return summary, nil
}

// IsReminderDue reports whether an event starting at start is inside the one-hour window
// ending at the configured lead time: hoursBefore-1 <= hours until start <= hoursBefore
func IsReminderDue(start, now time.Time, hoursBefore int) bool {
	hoursUntil := start.Sub(now).Hours()
	return hoursUntil >= float64(hoursBefore-1) && hoursUntil <= float64(hoursBefore)
}

func settingsForDate(settingsByCompany map[string]db.EmailSettings, date db.ExperienceDate) db.EmailSettings {
	if date.CompanyID == nil {
		return db.DefaultEmailSettings("")
	}
	if s, ok := settingsByCompany[*date.CompanyID]; ok {
		return s
	}
	return db.DefaultEmailSettings(*date.CompanyID)
}

func logReminderFailure(logger *zap.Logger, booking db.Booking, err error) {
	fields := []zap.Field{
		zap.String("booking_id", booking.ID),
		zap.String("user_id", booking.UserID),
		zap.Error(err),
	}

	switch {
	case errors.Is(err, db.ErrProfileNotFound), errors.Is(err, db.ErrExperienceNotFound):
		logger.Warn("Skipping reminder with missing data", fields...)
	case errors.Is(err, ErrTransportFailure):
		logger.Warn("Failed to send reminder email, will retry on next pass", fields...)
	default:
		logger.Error("Failed to process reminder", fields...)
	}
}
