package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/httpapi"
	"github.com/jakechorley/volunteer-booking/pkg/worker"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noWorkers, _ := cmd.Flags().GetBool("no-workers")

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var w *worker.Worker
			if !noWorkers {
				opts := worker.Options{SweepInterval: app.Cfg.SweepInterval()}
				if app.Queue != nil {
					opts.DrainInterval = app.Cfg.DrainInterval()
				}

				var err error
				w, err = worker.New(app.Service, app.Logger, opts)
				if err != nil {
					return err
				}
				w.Start()
			}

			srv := &http.Server{
				Addr:              app.Cfg.HTTP.Addr,
				Handler:           httpapi.NewRouter(app.Service, app.Logger, app.Cfg.RequestTimeout()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				app.Logger.Info("Shutting down")
			case err := <-errCh:
				serveErr = fmt.Errorf("http server failed: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("HTTP server did not shut down cleanly", zap.Error(err))
			}
			if w != nil {
				if err := w.Shutdown(); err != nil {
					app.Logger.Warn("Workers did not shut down cleanly", zap.Error(err))
				}
			}
			app.Trigger.Wait()

			return serveErr
		},
	}

	cmd.Flags().Bool("no-workers", false, "Serve the API only, without the reminder sweep and queue drain")

	return cmd
}
