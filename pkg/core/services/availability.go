package services

import (
	"context"
	"fmt"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// Availability is a point-in-time view of a date's remaining capacity
type Availability struct {
	ExperienceDateID string `json:"experience_date_id"`
	MaxParticipants  int    `json:"max_participants"`
	ConfirmedCount   int    `json:"confirmed_count"`
	AvailableSpots   int    `json:"available_spots"`
	Full             bool   `json:"full"`
}

// AvailableSpots returns the spots left on a date given its confirmed booking count.
// An over-booked date reports zero, never a negative number.
func AvailableSpots(date db.ExperienceDate, confirmedCount int) int {
	spots := date.MaxParticipants - confirmedCount
	if spots < 0 {
		return 0
	}
	return spots
}

// GetAvailability reads a date and its confirmed bookings and reports the spots left.
// The result can be stale as soon as it returns; CreateBooking re-checks capacity itself.
func GetAvailability(ctx context.Context, store db.BookingStore, experienceDateID string) (*Availability, error) {
	date, err := store.GetExperienceDate(ctx, experienceDateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get experience date %s: %w", experienceDateID, err)
	}

	count, err := store.CountConfirmedBookings(ctx, experienceDateID)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings for %s: %w", experienceDateID, err)
	}

	spots := AvailableSpots(*date, count)
	return &Availability{
		ExperienceDateID: date.ID,
		MaxParticipants:  date.MaxParticipants,
		ConfirmedCount:   count,
		AvailableSpots:   spots,
		Full:             spots == 0,
	}, nil
}
