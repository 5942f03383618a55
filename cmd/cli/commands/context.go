package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/internal/config"
	"github.com/jakechorley/volunteer-booking/pkg/core/services"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// BookingOperations is what the commands run. services.BookingService implements it.
type BookingOperations interface {
	CreateBooking(ctx context.Context, userID, experienceDateID string) (*db.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	GetAvailability(ctx context.Context, experienceDateID string) (*services.Availability, error)
	SendReminders(ctx context.Context) (*services.ReminderSummary, error)
	DrainReminders(ctx context.Context) (*services.ReminderSummary, error)
}

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database db.Database
	Mailer   services.Mailer
	Queue    services.ReminderQueue
	Trigger  *services.ConfirmationTrigger
	Service  BookingOperations
	Logger   *zap.Logger
	Ctx      context.Context
}
