package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexsheetsync/internal/market"
	"indexsheetsync/internal/utils"
)

func testLogger() utils.Logger {
	l, _ := test.NewNullLogger()
	return utils.NewAppLoggerFrom(l)
}

func testFetchConfig(driver string) utils.FetchConfig {
	return utils.FetchConfig{
		Driver:        driver,
		WaitTimeout:   5 * time.Second,
		UserAgent:     "indexsheetsync-test",
		TableSelector: "table",
	}
}

func TestStaticFetcher_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>" + historyTable + "</body></html>"))
	}))
	defer srv.Close()

	f := NewStaticFetcher(testLogger(), testFetchConfig(utils.DriverHTTP))
	defer f.Close()

	rows, err := f.Fetch(context.Background(), srv.URL+"/history", market.NewFetchWindow(time.Now(), 30))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "indexsheetsync-test", gotUA)
}

func TestStaticFetcher_NoTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>blocked</p></body></html>"))
	}))
	defer srv.Close()

	f := NewStaticFetcher(testLogger(), testFetchConfig(utils.DriverHTTP))
	_, err := f.Fetch(context.Background(), srv.URL, market.NewFetchWindow(time.Now(), 30))
	assert.ErrorContains(t, err, "no table")
}

func TestStaticFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewStaticFetcher(testLogger(), testFetchConfig(utils.DriverHTTP))
	_, err := f.Fetch(context.Background(), srv.URL, market.NewFetchWindow(time.Now(), 30))
	assert.Error(t, err)
}

func TestOpen_HTTPDriver(t *testing.T) {
	s, err := Open(context.Background(), testLogger(), testFetchConfig(utils.DriverHTTP))
	require.NoError(t, err)
	_, ok := s.(*StaticFetcher)
	assert.True(t, ok)
	assert.NoError(t, s.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), testLogger(), testFetchConfig("lynx"))
	assert.ErrorContains(t, err, "unknown fetch driver")
}

func TestScraper_ValidateConfig(t *testing.T) {
	cfg := testFetchConfig(utils.DriverChrome)
	cfg.WaitTimeout = 0
	s := NewScraper(context.Background(), testLogger(), cfg)
	defer s.Close()
	assert.ErrorContains(t, s.validateConfig(), "invalid timeout value")

	cfg = testFetchConfig(utils.DriverChrome)
	cfg.TableSelector = " "
	s2 := NewScraper(context.Background(), testLogger(), cfg)
	defer s2.Close()
	assert.Error(t, s2.validateConfig())
}

func TestScraper_CloseTwice(t *testing.T) {
	s := NewScraper(context.Background(), testLogger(), testFetchConfig(utils.DriverChrome))
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
