package db

import (
	"context"
	"time"
)

// BookingStore defines the capacity store operations used by the booking flow.
// CreateBooking must claim capacity and insert the booking atomically.
type BookingStore interface {
	GetExperienceDate(ctx context.Context, id string) (*ExperienceDate, error)
	CountConfirmedBookings(ctx context.Context, experienceDateID string) (int, error)
	CreateBooking(ctx context.Context, booking *Booking, now time.Time) error
	CancelBooking(ctx context.Context, bookingID string, now time.Time) (bool, error)
	GetBooking(ctx context.Context, id string) (*Booking, error)
}

// DeliveryLog is the append-only record of notifications.
// RecordSent must tolerate a duplicate (booking_id, email_type) without failing.
type DeliveryLog interface {
	HasBeenSent(ctx context.Context, bookingID string, emailType EmailType) (bool, error)
	RecordSent(ctx context.Context, entry DeliveryLogEntry) error
}

// NotificationStore defines the reads needed to assemble and send notifications
type NotificationStore interface {
	DeliveryLog
	GetBooking(ctx context.Context, id string) (*Booking, error)
	GetExperienceDate(ctx context.Context, id string) (*ExperienceDate, error)
	GetEmailSettingsForCompany(ctx context.Context, companyID string) (*EmailSettings, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetCompany(ctx context.Context, id string) (*Company, error)
	GetExperience(ctx context.Context, id string) (*Experience, error)
	GetEmailTemplate(ctx context.Context, companyID string, emailType EmailType) (*EmailTemplate, error)
}

// ReminderStore defines the operations needed by the reminder sweep
type ReminderStore interface {
	NotificationStore
	GetEmailSettings(ctx context.Context) ([]EmailSettings, error)
	GetDatesStartingBetween(ctx context.Context, from, to time.Time) ([]ExperienceDate, error)
	GetConfirmedBookings(ctx context.Context, experienceDateID string) ([]Booking, error)
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	BookingStore
	ReminderStore
	RunMigrations(ctx context.Context) error
	Close()
}
