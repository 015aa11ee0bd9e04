package scraper

import (
	"context"
	"fmt"

	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
)

// Open starts a fetch session with the configured driver. A browser that
// fails its preflight check is shut down before the error is returned.
func Open(ctx context.Context, logger utils.Logger, config utils.FetchConfig) (updater.FetchSession, error) {
	switch config.Driver {
	case utils.DriverChrome, "":
		s := NewScraper(ctx, logger, config)
		if err := s.PreflightCheck(); err != nil {
			if cerr := s.Close(); cerr != nil {
				logger.Warn("Error closing browser after failed preflight: %v", cerr)
			}
			return nil, fmt.Errorf("preflight failed: %w", err)
		}
		logger.Info("Browser session ready")
		return s, nil
	case utils.DriverHTTP:
		return NewStaticFetcher(logger, config), nil
	default:
		return nil, fmt.Errorf("unknown fetch driver %q", config.Driver)
	}
}

// Opener adapts Open to the orchestrator's session factory.
func Opener(logger utils.Logger, config utils.FetchConfig) updater.FetcherOpener {
	return func(ctx context.Context) (updater.FetchSession, error) {
		return Open(ctx, logger, config)
	}
}
