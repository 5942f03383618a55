package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

// ErrTransportFailure wraps any error returned by a mail transport
var ErrTransportFailure = errors.New("mail transport failure")

// Mailer defines the operations needed to deliver an email
type Mailer interface {
	Send(ctx context.Context, email model.Email) (model.Delivery, error)
}

// MailOptions configures how booking emails are addressed and delivered
type MailOptions struct {
	From     string
	FromName string
	// Location is used to print event times; nil means UTC
	Location *time.Location
	// SendTimeout bounds each transport call; zero means no extra bound
	SendTimeout time.Duration
}

// DeliveryOutcome is the result of handling one booking email
type DeliveryOutcome string

const (
	OutcomeSent    DeliveryOutcome = "sent"
	OutcomeSkipped DeliveryOutcome = "skipped"
	OutcomeFailed  DeliveryOutcome = "failed"
	OutcomeDropped DeliveryOutcome = "dropped"
)

// deliverBookingEmail sends one booking email unless the delivery log already has it.
// Nothing is logged when the transport fails, so a later attempt retries the booking.
func deliverBookingEmail(
	ctx context.Context,
	store db.NotificationStore,
	mailer Mailer,
	logger *zap.Logger,
	opts MailOptions,
	emailType db.EmailType,
	booking db.Booking,
	date db.ExperienceDate,
	now time.Time,
) (DeliveryOutcome, error) {
	alreadySent, err := store.HasBeenSent(ctx, booking.ID, emailType)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to check delivery log: %w", err)
	}
	if alreadySent {
		return OutcomeSkipped, nil
	}

	profile, err := store.GetProfile(ctx, booking.UserID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to resolve profile %s: %w", booking.UserID, err)
	}

	experience, err := store.GetExperience(ctx, date.ExperienceID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to resolve experience %s: %w", date.ExperienceID, err)
	}

	content := emailContent{
		Profile:    *profile,
		Experience: *experience,
		Date:       date,
	}

	var custom *db.EmailTemplate
	if companyID := templateCompanyID(profile, date); companyID != "" {
		custom, err = store.GetEmailTemplate(ctx, companyID, emailType)
		if err != nil {
			logger.Warn("Failed to load email template, using default copy",
				zap.String("company_id", companyID),
				zap.String("email_type", string(emailType)),
				zap.Error(err))
			custom = nil
		}

		company, err := store.GetCompany(ctx, companyID)
		if err == nil {
			content.Company = company
		} else if !errors.Is(err, db.ErrCompanyNotFound) {
			logger.Warn("Failed to load company", zap.String("company_id", companyID), zap.Error(err))
		}
	}

	rendered, err := renderBookingEmail(emailType, custom, content, opts.Location)
	if err != nil {
		return OutcomeFailed, err
	}

	delivery, err := sendWithTimeout(ctx, mailer, opts, model.Email{
		From:     opts.From,
		FromName: opts.FromName,
		To:       profile.Email,
		Subject:  rendered.Subject,
		HTML:     rendered.HTML,
	})
	if err != nil {
		return OutcomeFailed, err
	}

	status := db.DeliverySent
	if delivery.Simulated {
		status = db.DeliverySimulated
	}

	// The email is out; a failed log write only risks a duplicate on a later pass
	if err := store.RecordSent(ctx, db.DeliveryLogEntry{
		BookingID:  booking.ID,
		EmailType:  emailType,
		Status:     status,
		SentAt:     now.UTC(),
		DeliveryID: delivery.ID,
	}); err != nil {
		logger.Error("Failed to record delivery",
			zap.String("booking_id", booking.ID),
			zap.String("email_type", string(emailType)),
			zap.Error(err))
	}

	logger.Debug("Booking email delivered",
		zap.String("booking_id", booking.ID),
		zap.String("email_type", string(emailType)),
		zap.String("status", string(status)),
		zap.String("email", profile.Email))

	return OutcomeSent, nil
}

// sendWithTimeout calls the mail transport under the configured per-call timeout
func sendWithTimeout(ctx context.Context, mailer Mailer, opts MailOptions, email model.Email) (model.Delivery, error) {
	if opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.SendTimeout)
		defer cancel()
	}

	delivery, err := mailer.Send(ctx, email)
	if err != nil {
		return model.Delivery{}, fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	return delivery, nil
}

// templateCompanyID picks the company whose template applies: the user's company first,
// then the company that owns the date
func templateCompanyID(profile *db.Profile, date db.ExperienceDate) string {
	if profile.CompanyID != nil && *profile.CompanyID != "" {
		return *profile.CompanyID
	}
	if date.CompanyID != nil {
		return *date.CompanyID
	}
	return ""
}

// resolveEmailSettings returns the settings for a date's company, or the defaults when
// the date has no company or the company has no settings row
func resolveEmailSettings(ctx context.Context, store db.NotificationStore, companyID *string) (db.EmailSettings, error) {
	if companyID == nil || *companyID == "" {
		return db.DefaultEmailSettings(""), nil
	}

	settings, err := store.GetEmailSettingsForCompany(ctx, *companyID)
	if err != nil {
		return db.EmailSettings{}, fmt.Errorf("failed to load email settings for %s: %w", *companyID, err)
	}
	if settings == nil {
		return db.DefaultEmailSettings(*companyID), nil
	}
	return *settings, nil
}

func recordOutcome(emailType db.EmailType, outcome DeliveryOutcome) {
	metrics.IncEmailDelivery(string(emailType), string(outcome))
}
