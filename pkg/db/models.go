package db

import "time"

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// EmailType identifies which notification a delivery log entry is for
type EmailType string

const (
	EmailBookingConfirmation EmailType = "booking_confirmation"
	EmailBookingReminder     EmailType = "booking_reminder"
)

// DeliveryStatus is the outcome recorded for a notification
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliverySimulated DeliveryStatus = "simulated"
	// DeliveryFailed is never persisted. A failed send leaves no entry so the next pass retries it.
	DeliveryFailed DeliveryStatus = "failed"
)

// Default email settings applied when a company has no settings row
const (
	DefaultConfirmationEnabled = true
	DefaultReminderEnabled     = true
	DefaultReminderHoursBefore = 24
)

// ExperienceDate is one bookable, capacity-bounded occurrence of an experience
type ExperienceDate struct {
	ID                 string    `json:"id"`
	ExperienceID       string    `json:"experience_id"`
	CompanyID          *string   `json:"company_id,omitempty"`
	StartDatetime      time.Time `json:"start_datetime"`
	EndDatetime        time.Time `json:"end_datetime"`
	MaxParticipants    int       `json:"max_participants"`
	VolunteerHours     float64   `json:"volunteer_hours"`
	BeneficiariesCount int       `json:"beneficiaries_count"`
}

// Booking is a user's claim on one experience date
type Booking struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	ExperienceDateID string        `json:"experience_date_id"`
	Status           BookingStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
}

// EmailSettings holds a company's notification preferences
type EmailSettings struct {
	CompanyID           string `json:"company_id"`
	ConfirmationEnabled bool   `json:"confirmation_enabled"`
	ReminderEnabled     bool   `json:"reminder_enabled"`
	ReminderHoursBefore int    `json:"reminder_hours_before"`
}

// DefaultEmailSettings returns the settings used for companies without a settings row
func DefaultEmailSettings(companyID string) EmailSettings {
	return EmailSettings{
		CompanyID:           companyID,
		ConfirmationEnabled: DefaultConfirmationEnabled,
		ReminderEnabled:     DefaultReminderEnabled,
		ReminderHoursBefore: DefaultReminderHoursBefore,
	}
}

// DeliveryLogEntry records a notification that was sent or simulated
type DeliveryLogEntry struct {
	ID         string         `json:"id"`
	BookingID  string         `json:"booking_id"`
	EmailType  EmailType      `json:"email_type"`
	Status     DeliveryStatus `json:"status"`
	SentAt     time.Time      `json:"sent_at"`
	DeliveryID string         `json:"delivery_id,omitempty"`
}

// Profile is the user profile a booking belongs to
type Profile struct {
	UserID    string  `json:"user_id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	CompanyID *string `json:"company_id,omitempty"`
}

// Company is a corporate customer of the marketplace
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Experience is a volunteering activity offered by an association
type Experience struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	AssociationName string `json:"association_name"`
	Location        string `json:"location"`
}

// EmailTemplate is a company's override of the default email copy
type EmailTemplate struct {
	CompanyID string    `json:"company_id"`
	EmailType EmailType `json:"email_type"`
	Subject   string    `json:"subject"`
	Intro     string    `json:"intro"`
	Closing   string    `json:"closing"`
}
