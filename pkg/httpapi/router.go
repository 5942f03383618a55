// Package httpapi exposes booking, availability and reminder operations over HTTP
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/services"
	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

// Service is the set of operations served by the API.
// services.BookingService implements it.
type Service interface {
	CreateBooking(ctx context.Context, userID, experienceDateID string) (*db.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	GetAvailability(ctx context.Context, experienceDateID string) (*services.Availability, error)
	SendReminders(ctx context.Context) (*services.ReminderSummary, error)
}

// NewRouter builds the gin engine with logging, recovery and a per-request timeout
func NewRouter(svc Service, logger *zap.Logger, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	h := &handler{svc: svc}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	api.Use(timeout(requestTimeout))
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.createBooking)
			bookings.POST("/:id/cancel", h.cancelBooking)
		}

		api.GET("/experience-dates/:id/availability", h.availability)

		api.POST("/jobs/reminders", h.runReminders)
	}

	return router
}
