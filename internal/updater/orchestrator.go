package updater

import (
	"context"
	"fmt"
	"time"

	"indexsheetsync/internal/market"
	"indexsheetsync/internal/utils"
)

// Orchestrator runs the fetch, merge, retry and persist sequence for every
// configured series, one series at a time.
type Orchestrator struct {
	logger       utils.Logger
	series       []utils.SeriesConfig
	lookbackDays int
	order        market.Ordering
	openFetcher  FetcherOpener
	openStore    StoreOpener
	pacer        utils.Pacer
	perfTracker  *utils.PerformanceTracker
	now          func() time.Time
}

type Option func(*Orchestrator)

// WithPacer sets the pause inserted between series.
func WithPacer(p utils.Pacer) Option {
	return func(o *Orchestrator) { o.pacer = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithPerformanceTracker(pt *utils.PerformanceTracker) Option {
	return func(o *Orchestrator) { o.perfTracker = pt }
}

func NewOrchestrator(logger utils.Logger, config *utils.Config, openFetcher FetcherOpener, openStore StoreOpener, opts ...Option) (*Orchestrator, error) {
	order, err := market.ParseOrdering(config.Output.Order)
	if err != nil {
		return nil, fmt.Errorf("output.order: %w", err)
	}

	o := &Orchestrator{
		logger:       logger,
		series:       append([]utils.SeriesConfig(nil), config.Series...),
		lookbackDays: config.Fetch.LookbackDays,
		order:        order,
		openFetcher:  openFetcher,
		openStore:    openStore,
		pacer:        utils.NewRandomPacer(config.Fetch.SeriesDelayMin, config.Fetch.SeriesDelayMax),
		perfTracker:  utils.NewPerformanceTracker(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Orchestrator) GetPerformanceTracker() *utils.PerformanceTracker {
	return o.perfTracker
}

// Run performs one complete update. Series failures are reported in the
// returned report; workbook errors abort the run and are returned with the
// partial report. Nothing is saved unless every write succeeds.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	started := o.now()

	window := market.NewFetchWindow(started, o.lookbackDays)
	report := &RunReport{
		StartedAt:   started,
		WindowStart: window.Start,
		WindowEnd:   window.End,
	}
	o.logger.Info("Starting run for %d series, window %s", len(o.series), window)

	err := o.run(ctx, window, report)
	report.FinishedAt = o.now()
	o.perfTracker.TrackOperation("run", report.FinishedAt.Sub(started))
	if err != nil {
		report.Error = err.Error()
		o.logger.Error("Run aborted: %v", err)
		return report, err
	}

	o.logger.Info("Run finished: %d updated, %d failed", len(report.Succeeded()), len(report.Failed()))
	o.logger.Debug("%s", o.perfTracker.GenerateAggregateReport())
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, window market.FetchWindow, report *RunReport) error {
	store, err := o.openStore()
	if err != nil {
		return &PersistenceError{Op: "open", Err: err}
	}
	defer func() {
		if err := store.Close(); err != nil {
			o.logger.Error("Error closing workbook: %v", err)
		}
	}()

	// Snapshot every series before touching the browser so a read failure
	// costs no scraping.
	snapshots := make(map[string]market.SeriesTable, len(o.series))
	for _, s := range o.series {
		table, err := store.ReadSeries(s.Name)
		if err != nil {
			return &PersistenceError{Op: "read", Series: s.Name, Err: err}
		}
		o.logger.Debug("Loaded %d existing rows for %s", table.Len(), s.Name)
		snapshots[s.Name] = table
	}

	session, err := o.openFetcher(ctx)
	if err != nil {
		return fmt.Errorf("open fetcher: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			o.logger.Error("Error closing fetcher: %v", err)
		}
	}()

	coordinator := NewRetryCoordinator(o.logger, o.pacer)
	results := coordinator.Run(ctx, o.series, func(ctx context.Context, s utils.SeriesConfig) FetchOutcome {
		return o.attempt(ctx, session, s, window)
	})

	for _, res := range results {
		line := SeriesReport{
			Name:     res.Series.Name,
			Source:   res.Series.Source,
			Attempts: res.Attempts,
			Fetched:  res.Outcome.Fetched,
			Skipped:  res.Outcome.Skipped,
		}
		existing := snapshots[res.Series.Name]

		if res.Outcome.Kind != OutcomeSuccess {
			line.Status = StatusFailed
			line.Total = existing.Len()
			line.Error = res.Outcome.Err.Error()
			report.Series = append(report.Series, line)
			continue
		}

		mergeStart := time.Now()
		merged := market.Merge(existing, res.Outcome.Rows, window, o.order)
		merged.Name = res.Series.Name
		o.perfTracker.Time("merge", mergeStart)

		persistStart := time.Now()
		if err := store.WriteSeries(res.Series.Name, merged); err != nil {
			return &PersistenceError{Op: "write", Series: res.Series.Name, Err: err}
		}
		o.perfTracker.Time("persist", persistStart)

		line.Status = StatusUpdated
		line.Added = market.Added(existing, merged)
		line.Total = merged.Len()
		o.logger.Info("%s updated (%d rows, %d new)", res.Series.Name, line.Total, line.Added)
		report.Series = append(report.Series, line)
	}

	if len(report.Succeeded()) == 0 {
		o.logger.Warn("No series fetched, workbook left unchanged")
		return nil
	}

	saveStart := time.Now()
	if err := store.Save(); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	o.perfTracker.Time("persist", saveStart)
	return nil
}

func (o *Orchestrator) attempt(ctx context.Context, f Fetcher, s utils.SeriesConfig, window market.FetchWindow) FetchOutcome {
	defer o.perfTracker.Time("fetch", time.Now())

	raw, err := f.Fetch(ctx, s.Source, window)
	if err != nil {
		return Failure(err)
	}

	rows, skipped := market.ParseRows(raw)
	if skipped > 0 {
		o.logger.Debug("Skipped %d unparseable rows for %s", skipped, s.Name)
	}
	rows = market.FilterWindow(rows, window)
	if len(rows) == 0 {
		return Empty(len(raw), skipped)
	}
	return Success(rows, len(raw), skipped)
}
