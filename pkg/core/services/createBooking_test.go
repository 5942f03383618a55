package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func storeWithDate(maxParticipants int, start time.Time) *mockStore {
	store := newMockStore()
	store.addDate(db.ExperienceDate{
		ID:              "date-1",
		ExperienceID:    "exp-1",
		StartDatetime:   start,
		EndDatetime:     start.Add(3 * time.Hour),
		MaxParticipants: maxParticipants,
	})
	return store
}

func TestCreateBooking_CapacityScenario(t *testing.T) {
	store := storeWithDate(2, testNow.Add(72*time.Hour))
	notifier := &mockNotifier{}
	logger := zap.NewNop()
	ctx := context.Background()

	bookingA, err := CreateBooking(ctx, store, notifier, logger, testNow, "user-a", "date-1")
	require.NoError(t, err)
	_, err = CreateBooking(ctx, store, notifier, logger, testNow, "user-b", "date-1")
	require.NoError(t, err)

	// Date is full
	_, err = CreateBooking(ctx, store, notifier, logger, testNow, "user-c", "date-1")
	assert.ErrorIs(t, err, db.ErrCapacityExceeded)

	// A cancels, freeing a spot for C
	require.NoError(t, CancelBooking(ctx, store, logger, testNow, bookingA.ID))

	bookingC, err := CreateBooking(ctx, store, notifier, logger, testNow, "user-c", "date-1")
	require.NoError(t, err)
	assert.Equal(t, "user-c", bookingC.UserID)

	count, err := store.CountConfirmedBookings(ctx, "date-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, notifier.notified, 3)
}

func TestCreateBooking_SequentialCallsNeverExceedCapacity(t *testing.T) {
	store := storeWithDate(3, testNow.Add(72*time.Hour))
	logger := zap.NewNop()
	ctx := context.Background()

	var created []*db.Booking
	for i := 0; i < 6; i++ {
		b, err := CreateBooking(ctx, store, nil, logger, testNow, string(rune('a'+i)), "date-1")
		if err == nil {
			created = append(created, b)
		}
	}
	require.Len(t, created, 3)

	require.NoError(t, CancelBooking(ctx, store, logger, testNow, created[1].ID))
	_, err := CreateBooking(ctx, store, nil, logger, testNow, "late", "date-1")
	require.NoError(t, err)
	_, err = CreateBooking(ctx, store, nil, logger, testNow, "later", "date-1")
	assert.ErrorIs(t, err, db.ErrCapacityExceeded)

	count, _ := store.CountConfirmedBookings(ctx, "date-1")
	assert.LessOrEqual(t, count, 3)
}

func TestCreateBooking_DuplicateReturnsAlreadyBooked(t *testing.T) {
	store := storeWithDate(5, testNow.Add(72*time.Hour))
	notifier := &mockNotifier{}
	logger := zap.NewNop()
	ctx := context.Background()

	_, err := CreateBooking(ctx, store, notifier, logger, testNow, "user-a", "date-1")
	require.NoError(t, err)

	_, err = CreateBooking(ctx, store, notifier, logger, testNow, "user-a", "date-1")
	assert.ErrorIs(t, err, db.ErrAlreadyBooked)

	// Only the successful booking triggers a notification
	assert.Len(t, notifier.notified, 1)
}

func TestCreateBooking_RebookAfterCancelCreatesNewBooking(t *testing.T) {
	store := storeWithDate(5, testNow.Add(72*time.Hour))
	logger := zap.NewNop()
	ctx := context.Background()

	first, err := CreateBooking(ctx, store, nil, logger, testNow, "user-a", "date-1")
	require.NoError(t, err)
	require.NoError(t, CancelBooking(ctx, store, logger, testNow, first.ID))

	second, err := CreateBooking(ctx, store, nil, logger, testNow, "user-a", "date-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, db.BookingConfirmed, second.Status)
}

func TestCreateBooking_PastDateRejected(t *testing.T) {
	store := storeWithDate(5, testNow.Add(-time.Hour))
	notifier := &mockNotifier{}

	_, err := CreateBooking(context.Background(), store, notifier, zap.NewNop(), testNow, "user-a", "date-1")

	assert.ErrorIs(t, err, db.ErrDateInPast)
	assert.Empty(t, notifier.notified)
}

func TestCreateBooking_UnknownDate(t *testing.T) {
	store := newMockStore()

	_, err := CreateBooking(context.Background(), store, nil, zap.NewNop(), testNow, "user-a", "missing")

	assert.ErrorIs(t, err, db.ErrDateNotFound)
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	store := storeWithDate(5, testNow.Add(72*time.Hour))

	_, err := CreateBooking(context.Background(), store, nil, zap.NewNop(), testNow, "  ", "date-1")
	assert.ErrorIs(t, err, db.ErrInvalidInput)

	_, err = CreateBooking(context.Background(), store, nil, zap.NewNop(), testNow, "user-a", "")
	assert.ErrorIs(t, err, db.ErrInvalidInput)
}

func TestCreateBooking_StoreErrorIsWrapped(t *testing.T) {
	store := storeWithDate(5, testNow.Add(72*time.Hour))
	store.createErr = errors.New("connection reset")

	_, err := CreateBooking(context.Background(), store, nil, zap.NewNop(), testNow, "user-a", "date-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create booking")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCancelBooking_IsIdempotent(t *testing.T) {
	store := storeWithDate(1, testNow.Add(72*time.Hour))
	logger := zap.NewNop()
	ctx := context.Background()

	booking, err := CreateBooking(ctx, store, nil, logger, testNow, "user-a", "date-1")
	require.NoError(t, err)

	require.NoError(t, CancelBooking(ctx, store, logger, testNow, booking.ID))
	before, err := GetAvailability(ctx, store, "date-1")
	require.NoError(t, err)

	require.NoError(t, CancelBooking(ctx, store, logger, testNow, booking.ID))
	after, err := GetAvailability(ctx, store, "date-1")
	require.NoError(t, err)

	assert.Equal(t, before.AvailableSpots, after.AvailableSpots)
	assert.Equal(t, 1, after.AvailableSpots)
}

func TestCancelBooking_UnknownBooking(t *testing.T) {
	store := newMockStore()

	err := CancelBooking(context.Background(), store, zap.NewNop(), testNow, "0b9d2c5e-3b8f-4f7e-9d61-0c3c8f1a2b44")

	assert.ErrorIs(t, err, db.ErrBookingNotFound)
}

func TestCancelBooking_RejectsMalformedID(t *testing.T) {
	store := newMockStore()

	err := CancelBooking(context.Background(), store, zap.NewNop(), testNow, "not-a-uuid")

	assert.ErrorIs(t, err, db.ErrInvalidInput)
}
