package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// GetEmailSettings retrieves every company's email settings row
func (d *DB) GetEmailSettings(ctx context.Context) ([]db.EmailSettings, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT company_id, confirmation_enabled, reminder_enabled, reminder_hours_before
		FROM email_settings
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query email settings: %w", err)
	}
	defer rows.Close()

	var settings []db.EmailSettings
	for rows.Next() {
		var s db.EmailSettings
		if err := rows.Scan(&s.CompanyID, &s.ConfirmationEnabled, &s.ReminderEnabled, &s.ReminderHoursBefore); err != nil {
			return nil, fmt.Errorf("failed to scan email settings: %w", err)
		}
		settings = append(settings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating email settings: %w", err)
	}

	return settings, nil
}

// GetEmailSettingsForCompany retrieves one company's email settings.
// Returns nil without error when the company has no settings row.
func (d *DB) GetEmailSettingsForCompany(ctx context.Context, companyID string) (*db.EmailSettings, error) {
	var s db.EmailSettings
	err := d.pool.QueryRow(ctx, `
		SELECT company_id, confirmation_enabled, reminder_enabled, reminder_hours_before
		FROM email_settings
		WHERE company_id = $1
	`, companyID).Scan(&s.CompanyID, &s.ConfirmationEnabled, &s.ReminderEnabled, &s.ReminderHoursBefore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email settings: %w", err)
	}
	return &s, nil
}

// GetEmailTemplate retrieves a company's template for an email type.
// Returns nil without error when the company uses the default copy.
func (d *DB) GetEmailTemplate(ctx context.Context, companyID string, emailType db.EmailType) (*db.EmailTemplate, error) {
	var t db.EmailTemplate
	var storedType string
	err := d.pool.QueryRow(ctx, `
		SELECT company_id, email_type, subject, intro, closing
		FROM email_templates
		WHERE company_id = $1 AND email_type = $2
	`, companyID, string(emailType)).Scan(&t.CompanyID, &storedType, &t.Subject, &t.Intro, &t.Closing)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email template: %w", err)
	}
	t.EmailType = db.EmailType(storedType)
	return &t, nil
}
