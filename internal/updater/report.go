package updater

import (
	"fmt"
	"strings"
	"time"
)

type SeriesStatus string

const (
	StatusUpdated SeriesStatus = "updated"
	StatusFailed  SeriesStatus = "failed"
)

// SeriesReport is the per-series line of a run summary.
type SeriesReport struct {
	Name     string       `json:"name"`
	Source   string       `json:"source"`
	Status   SeriesStatus `json:"status"`
	Attempts int          `json:"attempts"`
	Fetched  int          `json:"fetched_rows"`
	Skipped  int          `json:"skipped_rows"`
	Added    int          `json:"added_rows"`
	Total    int          `json:"total_rows"`
	Error    string       `json:"error,omitempty"`
}

// RunReport describes one run. Error is set when the run aborted.
type RunReport struct {
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	Series      []SeriesReport `json:"series"`
	Error       string         `json:"error,omitempty"`
}

// Succeeded returns the names of the series that were written.
func (r *RunReport) Succeeded() []string {
	return r.names(StatusUpdated)
}

// Failed returns the names of the series that failed after the retry.
func (r *RunReport) Failed() []string {
	return r.names(StatusFailed)
}

func (r *RunReport) names(status SeriesStatus) []string {
	var out []string
	for _, s := range r.Series {
		if s.Status == status {
			out = append(out, s.Name)
		}
	}
	return out
}

// Lookup returns the report line for name.
func (r *RunReport) Lookup(name string) (SeriesReport, bool) {
	for _, s := range r.Series {
		if s.Name == name {
			return s, true
		}
	}
	return SeriesReport{}, false
}

// Summary renders the human-readable per-series result.
func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (window %s to %s)\n",
		r.StartedAt.Format(time.RFC3339),
		r.WindowStart.Format(time.DateOnly), r.WindowEnd.Format(time.DateOnly))
	for _, s := range r.Series {
		switch s.Status {
		case StatusUpdated:
			fmt.Fprintf(&b, "  OK     %-10s +%d rows (%d total, %d fetched, attempts %d)\n",
				s.Name, s.Added, s.Total, s.Fetched, s.Attempts)
		default:
			fmt.Fprintf(&b, "  FAILED %-10s %s (attempts %d)\n", s.Name, s.Error, s.Attempts)
		}
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "  run aborted: %s\n", r.Error)
	}
	return b.String()
}
