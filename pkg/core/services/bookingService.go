package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// Store is everything the booking service reads and writes
type Store interface {
	db.BookingStore
	db.ReminderStore
}

// ServiceOptions configures a BookingService
type ServiceOptions struct {
	Reminders  ReminderOptions
	BatchSize  int64
	RetryDelay time.Duration
}

// BookingService binds the booking and reminder operations to their dependencies.
// The HTTP API, the CLI and the workers all go through it.
type BookingService struct {
	store    Store
	notifier BookingNotifier
	mailer   Mailer
	queue    ReminderQueue
	logger   *zap.Logger
	opts     ServiceOptions
	now      func() time.Time
}

// NewBookingService creates a service. notifier and queue may be nil.
func NewBookingService(
	store Store,
	notifier BookingNotifier,
	mailer Mailer,
	queue ReminderQueue,
	logger *zap.Logger,
	opts ServiceOptions,
) *BookingService {
	return &BookingService{
		store:    store,
		notifier: notifier,
		mailer:   mailer,
		queue:    queue,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// ErrQueueDisabled is returned by DrainReminders when no reminder queue is configured
var ErrQueueDisabled = errors.New("reminder queue not configured")

func (s *BookingService) CreateBooking(ctx context.Context, userID, experienceDateID string) (*db.Booking, error) {
	return CreateBooking(ctx, s.store, s.notifier, s.logger, s.now(), userID, experienceDateID)
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) error {
	return CancelBooking(ctx, s.store, s.logger, s.now(), bookingID)
}

func (s *BookingService) GetAvailability(ctx context.Context, experienceDateID string) (*Availability, error) {
	return GetAvailability(ctx, s.store, experienceDateID)
}

// SendReminders runs one reminder sweep
func (s *BookingService) SendReminders(ctx context.Context) (*ReminderSummary, error) {
	return SendBookingReminders(ctx, s.store, s.mailer, s.logger, s.opts.Reminders, s.now())
}

// DrainReminders sends the due reminders from the queue
func (s *BookingService) DrainReminders(ctx context.Context) (*ReminderSummary, error) {
	if s.queue == nil {
		return nil, ErrQueueDisabled
	}
	return DrainDueReminders(ctx, s.queue, s.store, s.mailer, s.logger, s.opts.Reminders.Mail,
		s.now(), s.opts.BatchSize, s.opts.RetryDelay)
}
