package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"indexsheetsync/internal/market"
	"indexsheetsync/internal/utils"
)

// Scraper drives one headless Chrome session for the length of a run. Pages
// are loaded one after another; the session is not safe for concurrent use.
type Scraper struct {
	logger      utils.Logger
	config      utils.FetchConfig
	pacer       utils.Pacer
	perfTracker *utils.PerformanceTracker

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
}

func NewScraper(parent context.Context, logger utils.Logger, config utils.FetchConfig) *Scraper {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("enable-logging", false),
		chromedp.Flag("silent-debugger", true),
		chromedp.Flag("suppress-cookie-errors", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.UserAgent(config.UserAgent),
	)

	// the browser outlives any single request context, so only the
	// allocator is tied to parent
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			if !strings.Contains(strings.ToLower(fmt.Sprintf(format, args...)), "cookie") {
				logger.Debug(format, args...)
			}
		}),
	)

	return &Scraper{
		logger:      logger,
		config:      config,
		pacer:       utils.NewRandomPacer(config.PageDelayMin, config.PageDelayMax),
		perfTracker: utils.NewPerformanceTracker(),
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
}

func (s *Scraper) GetPerformanceTracker() *utils.PerformanceTracker {
	return s.perfTracker
}

// PreflightCheck verifies the configuration and that a browser can start.
func (s *Scraper) PreflightCheck() error {
	checks := []struct {
		name  string
		check func() error
	}{
		{"Config Validation", s.validateConfig},
		{"Browser Launch", s.testBrowserLaunch},
		{"Network Settings", s.testNetworkSettings},
	}

	for _, c := range checks {
		s.logger.Debug("Running preflight check: %s", c.name)
		if err := c.check(); err != nil {
			return fmt.Errorf("%s check failed: %v", c.name, err)
		}
		s.logger.Debug("%s check passed", c.name)
	}

	return nil
}

func (s *Scraper) validateConfig() error {
	if s.config.WaitTimeout <= 0 {
		return fmt.Errorf("invalid timeout value")
	}
	if strings.TrimSpace(s.config.TableSelector) == "" {
		return fmt.Errorf("table selector is empty")
	}
	return nil
}

// start launches the browser on the session context. The first Run on a
// chromedp context owns the browser, so it must not carry a timeout.
func (s *Scraper) start() error {
	return chromedp.Run(s.ctx)
}

func (s *Scraper) testBrowserLaunch() error {
	if err := s.start(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	return chromedp.Run(ctx, chromedp.Navigate("about:blank"))
}

func (s *Scraper) testNetworkSettings() error {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	return chromedp.Run(ctx,
		network.Enable(),
		network.SetCacheDisabled(true),
		emulation.SetUserAgentOverride(s.config.UserAgent),
	)
}

// Fetch loads the history page for source, scrolls so lazily rendered rows
// appear, waits for the table and returns its rows as cell texts.
func (s *Scraper) Fetch(ctx context.Context, source string, window market.FetchWindow) ([][]string, error) {
	defer s.perfTracker.Time("page", time.Now())

	if err := s.start(); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	target := HistoryURL(source, window)
	s.logger.Debug("Navigating to %s", target)

	if err := chromedp.Run(runCtx, chromedp.Navigate(target)); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := s.pacer.Pause(runCtx); err != nil {
		return nil, err
	}
	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil),
	); err != nil {
		return nil, fmt.Errorf("failed to scroll: %w", err)
	}
	if err := s.pacer.Pause(runCtx); err != nil {
		return nil, err
	}

	waitCtx, waitCancel := context.WithTimeout(runCtx, s.config.WaitTimeout)
	defer waitCancel()

	var html string
	err := chromedp.Run(waitCtx,
		chromedp.WaitReady(s.config.TableSelector, chromedp.ByQuery),
		chromedp.OuterHTML(s.config.TableSelector, &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("table %q not found within %v: %w", s.config.TableSelector, s.config.WaitTimeout, err)
	}

	rows, err := ExtractRowsFromHTML(html)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Extracted %d table rows from %s", len(rows), target)
	return rows, nil
}

// Close shuts the browser down. Calling it more than once is harmless.
func (s *Scraper) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser...")
		if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("error during browser shutdown: %w", cerr)
		}
		s.cancel()
		s.allocCancel()
	})
	return err
}
