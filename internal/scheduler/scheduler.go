package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
)

// Trigger starts a run and blocks until it finishes.
type Trigger interface {
	Trigger(ctx context.Context) (*updater.RunReport, error)
}

// Scheduler runs updates on a cron schedule.
type Scheduler struct {
	Cron    *cron.Cron
	trigger Trigger
	logger  utils.Logger
	ctx     context.Context
}

// NewScheduler creates a cron with a seconds field. Ticks that arrive while
// the previous scheduled run is still going are skipped.
func NewScheduler(ctx context.Context, logger utils.Logger, trigger Trigger) *Scheduler {
	cl := cronLogger{logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		trigger: trigger,
		logger:  logger,
		ctx:     ctx,
	}
}

// Register adds the update job. An empty expression leaves the scheduler idle.
func (s *Scheduler) Register(expr string) error {
	if expr == "" {
		s.logger.Info("No schedule configured, runs are manual only")
		return nil
	}
	if _, err := s.Cron.AddFunc(expr, s.runTask); err != nil {
		return fmt.Errorf("register update task %q: %w", expr, err)
	}
	s.logger.Info("Update task scheduled: %s", expr)
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the cron and waits for a scheduled run in progress.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow executes the update task immediately (for run_on_start).
func (s *Scheduler) RunNow() {
	s.runTask()
}

func (s *Scheduler) runTask() {
	s.logger.Info("Running scheduled update")
	_, err := s.trigger.Trigger(s.ctx)
	switch {
	case errors.Is(err, updater.ErrRunInProgress):
		s.logger.Warn("Skipping scheduled update: %v", err)
	case err != nil:
		s.logger.Error("Scheduled update failed: %v", err)
	default:
		s.logger.Info("Scheduled update completed")
	}
}

// cronLogger routes cron's key/value logging to the application logger.
type cronLogger struct {
	logger utils.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
