package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

const experienceDateColumns = `id, experience_id, company_id, start_datetime, end_datetime,
	max_participants, volunteer_hours, beneficiaries_count`

func scanExperienceDate(row pgx.Row) (*db.ExperienceDate, error) {
	var ed db.ExperienceDate
	err := row.Scan(
		&ed.ID,
		&ed.ExperienceID,
		&ed.CompanyID,
		&ed.StartDatetime,
		&ed.EndDatetime,
		&ed.MaxParticipants,
		&ed.VolunteerHours,
		&ed.BeneficiariesCount,
	)
	if err != nil {
		return nil, err
	}
	return &ed, nil
}

// GetExperienceDate retrieves an experience date by ID
func (d *DB) GetExperienceDate(ctx context.Context, id string) (*db.ExperienceDate, error) {
	ed, err := scanExperienceDate(d.pool.QueryRow(ctx,
		`SELECT `+experienceDateColumns+` FROM experience_dates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrDateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experience date: %w", err)
	}
	return ed, nil
}

// GetDatesStartingBetween retrieves experience dates whose start falls in [from, to]
func (d *DB) GetDatesStartingBetween(ctx context.Context, from, to time.Time) ([]db.ExperienceDate, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+experienceDateColumns+`
		FROM experience_dates
		WHERE start_datetime >= $1 AND start_datetime <= $2
		ORDER BY start_datetime
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query experience dates: %w", err)
	}
	defer rows.Close()

	var dates []db.ExperienceDate
	for rows.Next() {
		ed, err := scanExperienceDate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experience date: %w", err)
		}
		dates = append(dates, *ed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experience dates: %w", err)
	}

	return dates, nil
}

// GetExperience retrieves an experience by ID
func (d *DB) GetExperience(ctx context.Context, id string) (*db.Experience, error) {
	var e db.Experience
	err := d.pool.QueryRow(ctx, `
		SELECT id, title, association_name, location FROM experiences WHERE id = $1
	`, id).Scan(&e.ID, &e.Title, &e.AssociationName, &e.Location)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrExperienceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	return &e, nil
}
