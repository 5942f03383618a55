package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// mockStore is an in-memory store with the same capacity and uniqueness rules as postgres.DB
type mockStore struct {
	mu          sync.Mutex
	dates       map[string]db.ExperienceDate
	bookings    map[string]db.Booking
	order       []string
	settings    []db.EmailSettings
	profiles    map[string]db.Profile
	experiences map[string]db.Experience
	companies   map[string]db.Company
	templates   map[string]db.EmailTemplate
	deliveries  map[string]db.DeliveryLogEntry

	createErr   error
	datesErr    error
	settingsErr error
	bookingsErr error
	recordErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		dates:       make(map[string]db.ExperienceDate),
		bookings:    make(map[string]db.Booking),
		profiles:    make(map[string]db.Profile),
		experiences: make(map[string]db.Experience),
		companies:   make(map[string]db.Company),
		templates:   make(map[string]db.EmailTemplate),
		deliveries:  make(map[string]db.DeliveryLogEntry),
	}
}

func deliveryKey(bookingID string, emailType db.EmailType) string {
	return bookingID + "/" + string(emailType)
}

func (m *mockStore) addDate(d db.ExperienceDate) {
	m.dates[d.ID] = d
}

func (m *mockStore) addBooking(b db.Booking) {
	m.bookings[b.ID] = b
	m.order = append(m.order, b.ID)
}

func (m *mockStore) confirmedCount(dateID string) int {
	count := 0
	for _, b := range m.bookings {
		if b.ExperienceDateID == dateID && b.Status == db.BookingConfirmed {
			count++
		}
	}
	return count
}

func (m *mockStore) GetExperienceDate(ctx context.Context, id string) (*db.ExperienceDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dates[id]
	if !ok {
		return nil, db.ErrDateNotFound
	}
	return &d, nil
}

func (m *mockStore) CountConfirmedBookings(ctx context.Context, experienceDateID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmedCount(experienceDateID), nil
}

func (m *mockStore) CreateBooking(ctx context.Context, booking *db.Booking, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}

	date, ok := m.dates[booking.ExperienceDateID]
	if !ok {
		return db.ErrDateNotFound
	}
	if !date.StartDatetime.After(now) {
		return db.ErrDateInPast
	}
	if m.confirmedCount(date.ID) >= date.MaxParticipants {
		return db.ErrCapacityExceeded
	}
	for _, b := range m.bookings {
		if b.UserID == booking.UserID && b.ExperienceDateID == booking.ExperienceDateID && b.Status == db.BookingConfirmed {
			return db.ErrAlreadyBooked
		}
	}

	m.addBooking(*booking)
	return nil
}

func (m *mockStore) CancelBooking(ctx context.Context, bookingID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return false, db.ErrBookingNotFound
	}
	if b.Status == db.BookingCancelled {
		return false, nil
	}
	b.Status = db.BookingCancelled
	b.CancelledAt = &now
	m.bookings[bookingID] = b
	return true, nil
}

func (m *mockStore) GetBooking(ctx context.Context, id string) (*db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, db.ErrBookingNotFound
	}
	return &b, nil
}

func (m *mockStore) GetConfirmedBookings(ctx context.Context, experienceDateID string) ([]db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookingsErr != nil {
		return nil, m.bookingsErr
	}
	var result []db.Booking
	for _, id := range m.order {
		b := m.bookings[id]
		if b.ExperienceDateID == experienceDateID && b.Status == db.BookingConfirmed {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockStore) GetDatesStartingBetween(ctx context.Context, from, to time.Time) ([]db.ExperienceDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.datesErr != nil {
		return nil, m.datesErr
	}
	var result []db.ExperienceDate
	for _, d := range m.dates {
		if !d.StartDatetime.Before(from) && !d.StartDatetime.After(to) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDatetime.Before(result[j].StartDatetime) })
	return result, nil
}

func (m *mockStore) GetEmailSettings(ctx context.Context) ([]db.EmailSettings, error) {
	if m.settingsErr != nil {
		return nil, m.settingsErr
	}
	return m.settings, nil
}

func (m *mockStore) GetEmailSettingsForCompany(ctx context.Context, companyID string) (*db.EmailSettings, error) {
	if m.settingsErr != nil {
		return nil, m.settingsErr
	}
	for _, s := range m.settings {
		if s.CompanyID == companyID {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetProfile(ctx context.Context, userID string) (*db.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, db.ErrProfileNotFound
	}
	return &p, nil
}

func (m *mockStore) GetCompany(ctx context.Context, id string) (*db.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, db.ErrCompanyNotFound
	}
	return &c, nil
}

func (m *mockStore) GetExperience(ctx context.Context, id string) (*db.Experience, error) {
	e, ok := m.experiences[id]
	if !ok {
		return nil, db.ErrExperienceNotFound
	}
	return &e, nil
}

func (m *mockStore) GetEmailTemplate(ctx context.Context, companyID string, emailType db.EmailType) (*db.EmailTemplate, error) {
	t, ok := m.templates[companyID+"/"+string(emailType)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockStore) HasBeenSent(ctx context.Context, bookingID string, emailType db.EmailType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.deliveries[deliveryKey(bookingID, emailType)]
	return ok, nil
}

func (m *mockStore) RecordSent(ctx context.Context, entry db.DeliveryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	key := deliveryKey(entry.BookingID, entry.EmailType)
	if _, exists := m.deliveries[key]; !exists {
		m.deliveries[key] = entry
	}
	return nil
}

func (m *mockStore) deliveryCount(emailType db.EmailType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, d := range m.deliveries {
		if d.EmailType == emailType {
			count++
		}
	}
	return count
}

// mockMailer implements Mailer for testing
type mockMailer struct {
	mu        sync.Mutex
	sent      []model.Email
	failFor   map[string]bool
	err       error
	simulated bool
	block     bool
}

func (m *mockMailer) Send(ctx context.Context, email model.Email) (model.Delivery, error) {
	if m.block {
		<-ctx.Done()
		return model.Delivery{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Delivery{}, m.err
	}
	if m.failFor[email.To] {
		return model.Delivery{}, fmt.Errorf("smtp rejected %s", email.To)
	}
	m.sent = append(m.sent, email)
	if m.simulated {
		return model.Delivery{Simulated: true}, nil
	}
	return model.Delivery{ID: fmt.Sprintf("msg-%d", len(m.sent))}, nil
}

func (m *mockMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	to := make([]string, len(m.sent))
	for i, e := range m.sent {
		to[i] = e.To
	}
	return to
}

// mockNotifier implements BookingNotifier for testing
type mockNotifier struct {
	notified []string
}

func (m *mockNotifier) NotifyBookingConfirmed(bookingID string) {
	m.notified = append(m.notified, bookingID)
}

// mockQueue implements ReminderQueue for testing
type mockQueue struct {
	mu          sync.Mutex
	jobs        map[string]time.Time
	scheduleErr error
	dueErr      error
	claimedBy   map[string]bool
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(map[string]time.Time), claimedBy: make(map[string]bool)}
}

func (m *mockQueue) Schedule(ctx context.Context, bookingID string, fireAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduleErr != nil {
		return m.scheduleErr
	}
	m.jobs[bookingID] = fireAt
	return nil
}

func (m *mockQueue) Due(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	var due []string
	for id, fireAt := range m.jobs {
		if !fireAt.After(now) {
			due = append(due, id)
		}
	}
	sort.Strings(due)
	if limit > 0 && int64(len(due)) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *mockQueue) Claim(ctx context.Context, bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[bookingID]; !ok {
		return false, nil
	}
	delete(m.jobs, bookingID)
	m.claimedBy[bookingID] = true
	return true, nil
}

func strPtr(s string) *string {
	return &s
}
