package updater

import (
	"context"

	"indexsheetsync/internal/utils"
)

// AttemptFunc performs one fetch of one series.
type AttemptFunc func(ctx context.Context, s utils.SeriesConfig) FetchOutcome

// SeriesAttempt is the final outcome for a series after the retry pass.
type SeriesAttempt struct {
	Series   utils.SeriesConfig
	Outcome  FetchOutcome
	Attempts int
}

// RetryCoordinator runs one pass over all series, then retries each failed
// or empty series exactly once. There is no backoff.
type RetryCoordinator struct {
	logger utils.Logger
	pacer  utils.Pacer
}

func NewRetryCoordinator(logger utils.Logger, pacer utils.Pacer) *RetryCoordinator {
	if pacer == nil {
		pacer = utils.NoPause{}
	}
	return &RetryCoordinator{logger: logger, pacer: pacer}
}

// Run returns one SeriesAttempt per series, in the order given.
func (c *RetryCoordinator) Run(ctx context.Context, series []utils.SeriesConfig, attempt AttemptFunc) []SeriesAttempt {
	results := make([]SeriesAttempt, len(series))
	var pending []int

	for i, s := range series {
		if i > 0 {
			c.pause(ctx)
		}
		c.logger.Info("Fetching %s ...", s.Name)
		out := attempt(ctx, s)
		results[i] = SeriesAttempt{Series: s, Outcome: out, Attempts: 1}

		switch out.Kind {
		case OutcomeSuccess:
			c.logger.Info("%s fetched %d rows", s.Name, len(out.Rows))
		case OutcomeEmpty:
			c.logger.Warn("No data for %s", s.Name)
			pending = append(pending, i)
		default:
			c.logger.Error("Error fetching %s: %v", s.Name, out.Err)
			pending = append(pending, i)
		}
	}

	if len(pending) == 0 {
		return results
	}
	if ctx.Err() != nil {
		c.logger.Warn("Skipping retry of %d series: %v", len(pending), ctx.Err())
		return results
	}

	c.logger.Info("Retrying %d failed series...", len(pending))
	for _, i := range pending {
		c.pause(ctx)
		s := series[i]
		out := attempt(ctx, s)
		results[i].Outcome = out
		results[i].Attempts++

		switch out.Kind {
		case OutcomeSuccess:
			c.logger.Info("%s fetched %d rows on retry", s.Name, len(out.Rows))
		case OutcomeEmpty:
			c.logger.Warn("Still no data for %s, skipping", s.Name)
		default:
			c.logger.Error("Failed again for %s, skipping: %v", s.Name, out.Err)
		}
	}
	return results
}

func (c *RetryCoordinator) pause(ctx context.Context) {
	if err := c.pacer.Pause(ctx); err != nil {
		c.logger.Debug("Pause interrupted: %v", err)
	}
}
