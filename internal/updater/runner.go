package updater

import (
	"context"
	"errors"
	"sync"

	"indexsheetsync/internal/utils"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Job is anything that performs a run; *Orchestrator is the real one.
type Job interface {
	Run(ctx context.Context) (*RunReport, error)
}

// RunRecorder persists finished run reports.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *RunReport) error
}

// Runner serializes runs triggered from the API and the scheduler and keeps
// the latest report. The workbook has a single writer, so runs never overlap.
type Runner struct {
	logger   utils.Logger
	job      Job
	recorder RunRecorder

	mu      sync.Mutex
	running bool
	latest  *RunReport
	wg      sync.WaitGroup
}

func NewRunner(logger utils.Logger, job Job, recorder RunRecorder) *Runner {
	return &Runner{logger: logger, job: job, recorder: recorder}
}

func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) release(report *RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if report != nil {
		r.latest = report
	}
}

// Trigger runs the job now and blocks until it finishes.
func (r *Runner) Trigger(ctx context.Context) (*RunReport, error) {
	if !r.acquire() {
		return nil, ErrRunInProgress
	}
	return r.execute(ctx)
}

// TriggerAsync starts the job in the background.
func (r *Runner) TriggerAsync(ctx context.Context) error {
	if !r.acquire() {
		return ErrRunInProgress
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.execute(ctx); err != nil {
			r.logger.Error("Background run failed: %v", err)
		}
	}()
	return nil
}

func (r *Runner) execute(ctx context.Context) (report *RunReport, err error) {
	defer func() { r.release(report) }()

	report, err = r.job.Run(ctx)
	if report != nil {
		r.logger.Info("Run summary:\n%s", report.Summary())
		if r.recorder != nil {
			if recErr := r.recorder.RecordRun(ctx, report); recErr != nil {
				r.logger.Error("Failed to record run history: %v", recErr)
			}
		}
	}
	return report, err
}

// Wait blocks until background runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Latest returns the most recent report, if any run has finished.
func (r *Runner) Latest() (*RunReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.latest != nil
}
