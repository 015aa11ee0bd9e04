package scraper

import (
	"net/url"
	"strconv"
	"strings"

	"indexsheetsync/internal/market"
)

// HistoryURL narrows a Yahoo history page to the fetch window by adding
// period1/period2 unless the source already carries them. Other sources are
// returned as they are.
func HistoryURL(source string, window market.FetchWindow) string {
	u, err := url.Parse(source)
	if err != nil || !strings.HasSuffix(u.Hostname(), "finance.yahoo.com") {
		return source
	}

	q := u.Query()
	if q.Has("period1") || q.Has("period2") {
		return source
	}
	// period2 is exclusive, so push it past the last day of the window
	q.Set("period1", strconv.FormatInt(window.Start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(window.End.AddDate(0, 0, 1).Unix(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}
