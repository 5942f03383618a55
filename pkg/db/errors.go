package db

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrAlreadyBooked      = errors.New("already booked")
	ErrDateNotFound       = errors.New("experience date not found")
	ErrDateInPast         = errors.New("experience date has already started")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrExperienceNotFound = errors.New("experience not found")
	ErrCompanyNotFound    = errors.New("company not found")
)
