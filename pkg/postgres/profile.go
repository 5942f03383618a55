package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// GetProfile retrieves a user's profile
func (d *DB) GetProfile(ctx context.Context, userID string) (*db.Profile, error) {
	var p db.Profile
	err := d.pool.QueryRow(ctx, `
		SELECT user_id, email, first_name, last_name, company_id
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Email, &p.FirstName, &p.LastName, &p.CompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// GetCompany retrieves a company by ID
func (d *DB) GetCompany(ctx context.Context, id string) (*db.Company, error) {
	var c db.Company
	err := d.pool.QueryRow(ctx, `SELECT id, name FROM companies WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}
