package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"indexsheetsync/internal/market"
	"indexsheetsync/internal/utils"
)

// StaticFetcher reads history tables from server-rendered pages without a
// browser.
type StaticFetcher struct {
	logger utils.Logger
	config utils.FetchConfig
}

func NewStaticFetcher(logger utils.Logger, config utils.FetchConfig) *StaticFetcher {
	return &StaticFetcher{logger: logger, config: config}
}

func (f *StaticFetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
	)
	if f.config.WaitTimeout > 0 {
		c.SetRequestTimeout(f.config.WaitTimeout)
	}
	return c
}

func (f *StaticFetcher) Fetch(ctx context.Context, source string, window market.FetchWindow) ([][]string, error) {
	target := HistoryURL(source, window)
	c := f.newCollector(ctx)

	var rows [][]string
	found := false
	c.OnHTML(f.config.TableSelector, func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		rows = ExtractRows(e.DOM)
	})
	c.OnResponse(func(r *colly.Response) {
		f.logger.Debug("Got %d bytes from %s (status %d)", len(r.Body), r.Request.URL, r.StatusCode)
	})

	start := time.Now()
	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	c.Wait()

	if !found {
		return nil, fmt.Errorf("no table matching %q at %s", f.config.TableSelector, target)
	}
	f.logger.Debug("Extracted %d table rows from %s in %v", len(rows), target, time.Since(start))
	return rows, nil
}

func (f *StaticFetcher) Close() error {
	return nil
}
