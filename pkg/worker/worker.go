// Package worker runs the reminder sweep and the reminder queue drain on a schedule
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/services"
)

// Runner performs one reminder pass of each kind
type Runner interface {
	SendReminders(ctx context.Context) (*services.ReminderSummary, error)
	DrainReminders(ctx context.Context) (*services.ReminderSummary, error)
}

// Options sets the job intervals. A zero DrainInterval disables the drain job.
type Options struct {
	SweepInterval time.Duration
	DrainInterval time.Duration
}

// Worker owns a gocron scheduler with the reminder jobs
type Worker struct {
	scheduler gocron.Scheduler
	runner    Runner
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New registers the jobs. They start running on Start.
func New(runner Runner, logger *zap.Logger, opts Options) (*Worker, error) {
	if opts.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", opts.SweepInterval)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(zapLogger{logger.Sugar()}))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		scheduler: scheduler,
		runner:    runner,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := w.addJob("reminder_sweep", opts.SweepInterval, runner.SendReminders); err != nil {
		cancel()
		return nil, err
	}
	if opts.DrainInterval > 0 {
		if err := w.addJob("reminder_drain", opts.DrainInterval, runner.DrainReminders); err != nil {
			cancel()
			return nil, err
		}
	}

	return w, nil
}

// addJob registers a pass that runs every interval, starting immediately.
// A pass that is still running when the next one is due makes the next one wait.
func (w *Worker) addJob(name string, interval time.Duration, pass func(context.Context) (*services.ReminderSummary, error)) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { w.run(name, pass) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	w.logger.Info("Scheduled job", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

func (w *Worker) run(name string, pass func(context.Context) (*services.ReminderSummary, error)) {
	summary, err := pass(w.ctx)
	if err != nil {
		w.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		return
	}

	w.logger.Debug("Job finished",
		zap.String("job", name),
		zap.Int("emails_sent", summary.EmailsSent),
		zap.Int("emails_skipped", summary.EmailsSkipped),
		zap.Int("emails_failed", summary.EmailsFailed))
}

// Start begins running the jobs
func (w *Worker) Start() {
	w.scheduler.Start()
}

// Shutdown cancels running passes and waits for them to return
func (w *Worker) Shutdown() error {
	w.cancel()
	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// zapLogger routes gocron's logging to zap
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
