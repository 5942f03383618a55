package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CreateBookingCmd creates the createBooking command
func CreateBookingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "createBooking <user_id> <experience_date_id>",
		Short: "Book a spot on an experience date for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("createBooking command",
				zap.String("user_id", args[0]),
				zap.String("experience_date_id", args[1]))

			booking, err := app.Service.CreateBooking(app.Ctx, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Booking confirmed\n\n")
			fmt.Fprintf(out, "Booking ID: %s\n", booking.ID)
			fmt.Fprintf(out, "User:       %s\n", booking.UserID)
			fmt.Fprintf(out, "Date:       %s\n\n", booking.ExperienceDateID)
			return nil
		},
	}
}

// CancelBookingCmd creates the cancelBooking command
func CancelBookingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelBooking <booking_id>",
		Short: "Cancel a booking and release its spot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Service.CancelBooking(app.Ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booking %s cancelled\n\n", args[0])
			return nil
		},
	}
}

// AvailableSpotsCmd creates the availableSpots command
func AvailableSpotsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "availableSpots <experience_date_id>",
		Short: "Show how many spots are left on an experience date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			availability, err := app.Service.GetAvailability(app.Ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nExperience date: %s\n", availability.ExperienceDateID)
			fmt.Fprintf(out, "Confirmed:       %d / %d\n", availability.ConfirmedCount, availability.MaxParticipants)
			if availability.Full {
				fmt.Fprintf(out, "Available:       0 (full)\n\n")
			} else {
				fmt.Fprintf(out, "Available:       %d\n\n", availability.AvailableSpots)
			}
			return nil
		},
	}
}
