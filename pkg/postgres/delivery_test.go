package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func TestHasBeenSent(t *testing.T) {
	store, mock := newMockDB(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("booking-1", "booking_reminder").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	sent, err := store.HasBeenSent(context.Background(), "booking-1", db.EmailBookingReminder)

	require.NoError(t, err)
	assert.True(t, sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSent_IgnoresDuplicates(t *testing.T) {
	store, mock := newMockDB(t)
	sentAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	// A duplicate key inserts nothing and still succeeds
	mock.ExpectExec("ON CONFLICT \\(booking_id, email_type\\) DO NOTHING").
		WithArgs(pgxmock.AnyArg(), "booking-1", "booking_reminder", "sent", sentAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := store.RecordSent(context.Background(), db.DeliveryLogEntry{
		BookingID:  "booking-1",
		EmailType:  db.EmailBookingReminder,
		Status:     db.DeliverySent,
		SentAt:     sentAt,
		DeliveryID: "msg-1",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSent_RejectsFailedStatus(t *testing.T) {
	store, mock := newMockDB(t)

	err := store.RecordSent(context.Background(), db.DeliveryLogEntry{
		BookingID: "booking-1",
		EmailType: db.EmailBookingReminder,
		Status:    db.DeliveryFailed,
	})

	assert.ErrorIs(t, err, db.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingMigrations_SkipsApplied(t *testing.T) {
	pending, err := pendingMigrations(map[string]bool{})
	require.NoError(t, err)
	assert.Contains(t, pending, "001_booking_core.sql")

	pending, err = pendingMigrations(map[string]bool{"001_booking_core.sql": true})
	require.NoError(t, err)
	assert.NotContains(t, pending, "001_booking_core.sql")
}
