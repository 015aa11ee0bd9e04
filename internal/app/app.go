// Package app assembles the orchestrator, runner and run history from a
// loaded configuration. Both binaries start here.
package app

import (
	"fmt"

	"indexsheetsync/internal/history"
	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
	"indexsheetsync/internal/workbook"
	"indexsheetsync/scraper"
)

type App struct {
	Config       *utils.Config
	Logger       utils.Logger
	Orchestrator *updater.Orchestrator
	Runner       *updater.Runner
	History      history.Recorder
}

func New(config *utils.Config, logger utils.Logger) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	layout, err := workbook.LayoutFromConfig(config.Output)
	if err != nil {
		return nil, err
	}
	openStore := func() (updater.Store, error) {
		return workbook.Open(config.Output.Path, layout, logger)
	}

	orchestrator, err := updater.NewOrchestrator(logger, config, scraper.Opener(logger, config.Fetch), openStore)
	if err != nil {
		return nil, err
	}

	recorder, err := history.Open(config.History.DSN, logger)
	if err != nil {
		// history is optional; the workbook update does not depend on it
		logger.Error("Run history disabled: %v", err)
		recorder = history.NoopRecorder{}
	}

	return &App{
		Config:       config,
		Logger:       logger,
		Orchestrator: orchestrator,
		Runner:       updater.NewRunner(logger, orchestrator, recorder),
		History:      recorder,
	}, nil
}

// Close waits for background runs and releases the history database.
func (a *App) Close() error {
	a.Runner.Wait()
	return a.History.Close()
}
