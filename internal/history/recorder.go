// Package history keeps a record of finished runs.
package history

import (
	"context"
	"time"

	"indexsheetsync/internal/updater"
)

// Recorder stores run reports and lists recent ones.
type Recorder interface {
	updater.RunRecorder
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// RunSummary is one stored run without its series lines.
type RunSummary struct {
	ID          int64     `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Error       string    `json:"error,omitempty"`
}

// NoopRecorder is used when no history database is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordRun(context.Context, *updater.RunReport) error { return nil }

func (NoopRecorder) RecentRuns(context.Context, int) ([]RunSummary, error) { return nil, nil }

func (NoopRecorder) Close() error { return nil }
