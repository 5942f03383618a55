package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/cmd/cli/commands"
	"github.com/jakechorley/volunteer-booking/internal/config"
	"github.com/jakechorley/volunteer-booking/pkg/clients/gmailclient"
	"github.com/jakechorley/volunteer-booking/pkg/clients/mailclient"
	"github.com/jakechorley/volunteer-booking/pkg/clients/sesclient"
	"github.com/jakechorley/volunteer-booking/pkg/core/services"
	"github.com/jakechorley/volunteer-booking/pkg/delayqueue"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
	"github.com/jakechorley/volunteer-booking/pkg/postgres"
	"github.com/jakechorley/volunteer-booking/pkg/utils"
	"github.com/jakechorley/volunteer-booking/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Volunteer booking - capacity and notification core",
		Long:  `Books volunteers onto experience dates, sends booking confirmations and schedules reminders.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.CreateBookingCmd(app))
	rootCmd.AddCommand(commands.CancelBookingCmd(app))
	rootCmd.AddCommand(commands.AvailableSpotsCmd(app))
	rootCmd.AddCommand(commands.SendBookingRemindersCmd(app))
	rootCmd.AddCommand(commands.DrainReminderQueueCmd(app))
	rootCmd.AddCommand(commands.AuthGmailCmd(app))

	if err := rootCmd.Execute(); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp sets up the logger, config, database, mail transport, queue and services
func initApp(cmd *cobra.Command) error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env, cmd.Name() == "serve")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("command", cmd.Name()))

	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	if cmd.Annotations[commands.SkipServicesAnnotation] == "true" {
		return nil
	}

	metrics.Register()

	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, app.Cfg.Database.URL, app.Cfg.MaxConns())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = database

	app.Mailer, err = newMailer()
	if err != nil {
		return err
	}

	if app.Cfg.Redis.URL != "" {
		app.Logger.Info("Connecting to reminder queue")
		queue, err := delayqueue.Connect(app.Ctx, app.Cfg.Redis.URL, app.Cfg.Redis.Key)
		if err != nil {
			return fmt.Errorf("failed to connect to reminder queue: %w", err)
		}
		app.Queue = queue
	} else {
		app.Logger.Info("No redis configured, reminders rely on the sweep only")
	}

	mailOpts := services.MailOptions{
		From:        app.Cfg.Mail.From,
		FromName:    app.Cfg.Mail.FromName,
		Location:    app.Cfg.MailLocation(),
		SendTimeout: app.Cfg.MailTimeout(),
	}

	app.Trigger = services.NewConfirmationTrigger(app.Database, app.Mailer, app.Queue, app.Logger, mailOpts, services.DefaultNotifyTimeout)

	app.Service = services.NewBookingService(app.Database, app.Trigger, app.Mailer, app.Queue, app.Logger, services.ServiceOptions{
		Reminders: services.ReminderOptions{
			Mail:      mailOpts,
			LookAhead: app.Cfg.LookAhead(),
		},
		BatchSize:  app.Cfg.BatchSize(),
		RetryDelay: app.Cfg.RetryDelay(),
	})

	app.Logger.Debug("Application initialized")
	return nil
}

// newMailer builds the configured mail transport
func newMailer() (services.Mailer, error) {
	mailCfg := app.Cfg.Mail
	app.Logger.Info("Initializing mail transport", zap.String("transport", mailCfg.Transport))

	switch mailCfg.Transport {
	case config.TransportSMTP:
		client, err := mailclient.NewClient(mailclient.Options{
			Host:     mailCfg.SMTP.Host,
			Port:     mailCfg.SMTP.Port,
			Username: mailCfg.SMTP.Username,
			Password: mailCfg.SMTP.Password,
		}, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create smtp client: %w", err)
		}
		return client, nil

	case config.TransportSES:
		client, err := sesclient.NewClient(app.Ctx, mailCfg.SESRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create ses client: %w", err)
		}
		return client, nil

	case config.TransportGmail:
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
		if err != nil {
			return nil, err
		}
		token, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, env, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to get gmail token: %w", err)
		}
		client, err := gmailclient.NewClient(app.Ctx, oauthCfg, token)
		if err != nil {
			return nil, fmt.Errorf("failed to create gmail client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown mail transport %q", mailCfg.Transport)
	}
}

// closeApp waits for background notifications and releases connections
func closeApp() {
	if app.Trigger != nil {
		app.Trigger.Wait()
		app.Trigger = nil
	}
	if closer, ok := app.Queue.(interface{ Close() error }); ok {
		closer.Close()
		app.Queue = nil
	}
	if app.Database != nil {
		app.Database.Close()
		app.Database = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
