package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakechorley/volunteer-booking/pkg/db"
)

type handler struct {
	svc Service
}

// CreateBookingRequest is the body of POST /api/v1/bookings
type CreateBookingRequest struct {
	UserID           string `json:"user_id" binding:"required"`
	ExperienceDateID string `json:"experience_date_id" binding:"required"`
}

func (h *handler) createBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %s", db.ErrInvalidInput, err.Error()))
		return
	}

	booking, err := h.svc.CreateBooking(c.Request.Context(), req.UserID, req.ExperienceDateID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *handler) cancelBooking(c *gin.Context) {
	bookingID := c.Param("id")

	if err := h.svc.CancelBooking(c.Request.Context(), bookingID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking_id": bookingID, "status": db.BookingCancelled})
}

func (h *handler) availability(c *gin.Context) {
	availability, err := h.svc.GetAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}

// runReminders is the entry point for an external cron
func (h *handler) runReminders(c *gin.Context) {
	summary, err := h.svc.SendReminders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
