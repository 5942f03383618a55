package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps domain errors to an HTTP status and a stable error code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, db.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, db.ErrCapacityExceeded):
		return http.StatusConflict, "capacity_exceeded"
	case errors.Is(err, db.ErrAlreadyBooked):
		return http.StatusConflict, "already_booked"
	case errors.Is(err, db.ErrDateNotFound):
		return http.StatusNotFound, "date_not_found"
	case errors.Is(err, db.ErrBookingNotFound):
		return http.StatusNotFound, "booking_not_found"
	case errors.Is(err, db.ErrDateInPast):
		return http.StatusUnprocessableEntity, "date_in_past"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}
