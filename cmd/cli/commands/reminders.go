package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-booking/pkg/core/services"
)

// SendBookingRemindersCmd creates the sendBookingReminders command
func SendBookingRemindersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sendBookingReminders",
		Short: "Run one reminder sweep over upcoming experience dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := app.Service.SendReminders(app.Ctx)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), "Reminder sweep completed", summary)
			return nil
		},
	}
}

// DrainReminderQueueCmd creates the drainReminderQueue command
func DrainReminderQueueCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drainReminderQueue",
		Short: "Send every scheduled reminder that is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := app.Service.DrainReminders(app.Ctx)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), "Reminder queue drained", summary)
			return nil
		},
	}
}

func printSummary(out io.Writer, title string, summary *services.ReminderSummary) {
	fmt.Fprintf(out, "\n✓ %s\n\n", title)
	fmt.Fprintf(out, "Sent:    %d\n", summary.EmailsSent)
	fmt.Fprintf(out, "Skipped: %d\n", summary.EmailsSkipped)
	if summary.EmailsFailed > 0 {
		fmt.Fprintf(out, "⚠️  Failed: %d (will be retried on the next pass)\n", summary.EmailsFailed)
	}
	fmt.Fprintln(out)
}
