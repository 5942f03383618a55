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

// reminderStore builds a store with one date starting hoursUntil hours after testNow,
// owned by company-1, with one confirmed booking per user
func reminderStore(hoursUntil float64, users ...string) *mockStore {
	store := newMockStore()
	start := testNow.Add(time.Duration(hoursUntil * float64(time.Hour)))
	store.addDate(db.ExperienceDate{
		ID:              "date-1",
		ExperienceID:    "exp-1",
		CompanyID:       strPtr("company-1"),
		StartDatetime:   start,
		EndDatetime:     start.Add(2 * time.Hour),
		MaxParticipants: 10,
		VolunteerHours:  2,
	})
	store.experiences["exp-1"] = db.Experience{ID: "exp-1", Title: "Pulizia del parco", AssociationName: "Verde Insieme", Location: "Milano"}
	store.companies["company-1"] = db.Company{ID: "company-1", Name: "Acme"}

	for _, user := range users {
		store.profiles[user] = db.Profile{UserID: user, Email: user + "@example.com", FirstName: user, CompanyID: strPtr("company-1")}
		store.addBooking(db.Booking{
			ID:               "booking-" + user,
			UserID:           user,
			ExperienceDateID: "date-1",
			Status:           db.BookingConfirmed,
			CreatedAt:        testNow.Add(-24 * time.Hour),
		})
	}
	return store
}

func reminderOpts() ReminderOptions {
	return ReminderOptions{
		Mail:      MailOptions{From: "noreply@example.com", FromName: "Volontariato", SendTimeout: time.Second},
		LookAhead: DefaultLookAhead,
	}
}

func TestIsReminderDue(t *testing.T) {
	tests := []struct {
		name        string
		hoursUntil  float64
		hoursBefore int
		want        bool
	}{
		{name: "lead time plus 1.5h does not fire", hoursUntil: 25.5, hoursBefore: 24, want: false},
		{name: "lead time minus 0.5h fires", hoursUntil: 23.5, hoursBefore: 24, want: true},
		{name: "exactly at lead time fires", hoursUntil: 24, hoursBefore: 24, want: true},
		{name: "exactly one hour inside fires", hoursUntil: 23, hoursBefore: 24, want: true},
		{name: "just past the window does not fire", hoursUntil: 22.9, hoursBefore: 24, want: false},
		{name: "just before the window does not fire", hoursUntil: 24.1, hoursBefore: 24, want: false},
		{name: "short lead time", hoursUntil: 1.5, hoursBefore: 2, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := testNow.Add(time.Duration(tt.hoursUntil * float64(time.Hour)))
			assert.Equal(t, tt.want, IsReminderDue(start, testNow, tt.hoursBefore))
		})
	}
}

func TestSendBookingReminders_WindowEdges(t *testing.T) {
	settings := []db.EmailSettings{{CompanyID: "company-1", ReminderEnabled: true, ReminderHoursBefore: 12}}

	t.Run("hours_before plus 1.5 does not trigger", func(t *testing.T) {
		store := reminderStore(13.5, "anna")
		store.settings = settings
		mailer := &mockMailer{}

		summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

		require.NoError(t, err)
		assert.Equal(t, 0, summary.EmailsSent)
		assert.Empty(t, mailer.sent)
	})

	t.Run("hours_before minus 0.5 triggers", func(t *testing.T) {
		store := reminderStore(11.5, "anna")
		store.settings = settings
		mailer := &mockMailer{}

		summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

		require.NoError(t, err)
		assert.Equal(t, 1, summary.EmailsSent)
		assert.Equal(t, []string{"anna@example.com"}, mailer.sentTo())
	})
}

func TestSendBookingReminders_DisabledCompanyProducesNothing(t *testing.T) {
	store := reminderStore(23.5, "anna", "bruno")
	store.settings = []db.EmailSettings{{CompanyID: "company-1", ReminderEnabled: false, ReminderHoursBefore: 24}}
	mailer := &mockMailer{}

	summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.EmailsSent)
	assert.Equal(t, 0, summary.EmailsSkipped)
	assert.Empty(t, mailer.sent)
	assert.Equal(t, 0, store.deliveryCount(db.EmailBookingReminder))
}

func TestSendBookingReminders_DefaultsWhenNoSettingsRow(t *testing.T) {
	// No settings row: reminders enabled at 24 hours
	store := reminderStore(23.5, "anna")
	mailer := &mockMailer{}

	summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.EmailsSent)
}

func TestSendBookingReminders_SecondPassSkips(t *testing.T) {
	store := reminderStore(23.5, "anna")
	mailer := &mockMailer{}
	ctx := context.Background()

	first, err := SendBookingReminders(ctx, store, mailer, zap.NewNop(), reminderOpts(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, first.EmailsSent)
	assert.Equal(t, 0, first.EmailsSkipped)

	second, err := SendBookingReminders(ctx, store, mailer, zap.NewNop(), reminderOpts(), testNow.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, second.EmailsSent)
	assert.Equal(t, 1, second.EmailsSkipped)

	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, 1, store.deliveryCount(db.EmailBookingReminder))
}

func TestSendBookingReminders_TransportFailureIsRetriedNextPass(t *testing.T) {
	store := reminderStore(23.5, "anna", "bruno")
	mailer := &mockMailer{failFor: map[string]bool{"bruno@example.com": true}}
	ctx := context.Background()

	summary, err := SendBookingReminders(ctx, store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.EmailsSent)
	assert.Equal(t, 1, summary.EmailsFailed)
	assert.Equal(t, 1, store.deliveryCount(db.EmailBookingReminder))

	hasBruno, _ := store.HasBeenSent(ctx, "booking-bruno", db.EmailBookingReminder)
	assert.False(t, hasBruno)

	// Transport recovers within the same window
	mailer.failFor = nil
	retry, err := SendBookingReminders(ctx, store, mailer, zap.NewNop(), reminderOpts(), testNow.Add(15*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, 1, retry.EmailsSent)
	assert.Equal(t, 1, retry.EmailsSkipped)
	assert.Equal(t, 2, store.deliveryCount(db.EmailBookingReminder))
}

func TestSendBookingReminders_SimulatedDeliveryIsLogged(t *testing.T) {
	store := reminderStore(23.5, "anna")
	mailer := &mockMailer{simulated: true}

	summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.EmailsSent)
	entry := store.deliveries[deliveryKey("booking-anna", db.EmailBookingReminder)]
	assert.Equal(t, db.DeliverySimulated, entry.Status)
}

func TestSendBookingReminders_MissingProfileDoesNotStopBatch(t *testing.T) {
	store := reminderStore(23.5, "anna", "bruno")
	delete(store.profiles, "anna")
	mailer := &mockMailer{}

	summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.EmailsSent)
	assert.Equal(t, 1, summary.EmailsFailed)
	assert.Equal(t, []string{"bruno@example.com"}, mailer.sentTo())
}

func TestSendBookingReminders_MissingExperienceIsSkipped(t *testing.T) {
	store := reminderStore(23.5, "anna")
	delete(store.experiences, "exp-1")
	mailer := &mockMailer{}

	summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.EmailsSent)
	assert.Equal(t, 1, summary.EmailsFailed)
	assert.Empty(t, mailer.sent)
}

func TestSendBookingReminders_CancelledBookingsAreIgnored(t *testing.T) {
	store := reminderStore(23.5, "anna")
	b := store.bookings["booking-anna"]
	b.Status = db.BookingCancelled
	store.bookings["booking-anna"] = b
	mailer := &mockMailer{}

	summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, ReminderSummary{}, *summary)
}

func TestSendBookingReminders_DateQueryFailureIsFatal(t *testing.T) {
	store := reminderStore(23.5, "anna")
	store.datesErr = errors.New("database unavailable")

	summary, err := SendBookingReminders(context.Background(), store, &mockMailer{}, zap.NewNop(), reminderOpts(), testNow)

	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "failed to fetch upcoming experience dates")
}

func TestSendBookingReminders_BookingQueryFailureSkipsDate(t *testing.T) {
	store := reminderStore(23.5, "anna")
	store.bookingsErr = errors.New("timeout")

	summary, err := SendBookingReminders(context.Background(), store, &mockMailer{}, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	assert.Equal(t, ReminderSummary{}, *summary)
}

func TestSendBookingReminders_UsesCompanyTemplate(t *testing.T) {
	store := reminderStore(23.5, "anna")
	store.templates["company-1/booking_reminder"] = db.EmailTemplate{
		CompanyID: "company-1",
		EmailType: db.EmailBookingReminder,
		Subject:   "Acme reminder: {experience}",
		Intro:     "see you tomorrow",
	}
	mailer := &mockMailer{}

	_, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), reminderOpts(), testNow)

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Acme reminder: Pulizia del parco", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].HTML, "see you tomorrow")
	// Closing falls back to the default copy
	assert.Contains(t, mailer.sent[0].HTML, "libera")
}

func TestSendBookingReminders_TransportTimeoutCountsAsFailure(t *testing.T) {
	store := reminderStore(23.5, "anna")
	mailer := &mockMailer{block: true}
	opts := reminderOpts()
	opts.Mail.SendTimeout = 10 * time.Millisecond

	summary, err := SendBookingReminders(context.Background(), store, mailer, zap.NewNop(), opts, testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.EmailsFailed)
	assert.Equal(t, 0, store.deliveryCount(db.EmailBookingReminder))
}
