// Package market holds the typed price rows scraped for an index, the parser
// that builds them from table cells, and the merge that reconciles a fetched
// batch with what is already stored.
package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Columns is the fixed order of the persisted band.
var Columns = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// PriceRow is one observation for one series on one calendar date.
type PriceRow struct {
	Date     time.Time
	Open     decimal.NullDecimal
	High     decimal.NullDecimal
	Low      decimal.NullDecimal
	Close    decimal.NullDecimal
	AdjClose decimal.NullDecimal
	Volume   null.Int
}

// Equal compares rows by value; decimals compare numerically.
func (r PriceRow) Equal(o PriceRow) bool {
	return r.Date.Equal(o.Date) &&
		nullDecimalEqual(r.Open, o.Open) &&
		nullDecimalEqual(r.High, o.High) &&
		nullDecimalEqual(r.Low, o.Low) &&
		nullDecimalEqual(r.Close, o.Close) &&
		nullDecimalEqual(r.AdjClose, o.AdjClose) &&
		nullIntEqual(r.Volume, o.Volume)
}

func (r PriceRow) String() string {
	return fmt.Sprintf("%s O=%s H=%s L=%s C=%s AC=%s V=%s",
		r.Date.Format(time.DateOnly),
		formatNull(r.Open), formatNull(r.High), formatNull(r.Low),
		formatNull(r.Close), formatNull(r.AdjClose), formatVolume(r.Volume))
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func nullIntEqual(a, b null.Int) bool {
	return a.Valid == b.Valid && (!a.Valid || a.Int64 == b.Int64)
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

func formatVolume(v null.Int) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%d", v.Int64)
}

// SeriesTable is the ordered row set for one named index.
type SeriesTable struct {
	Name string
	Rows []PriceRow
}

// Len returns the number of rows.
func (t SeriesTable) Len() int {
	return len(t.Rows)
}

// Dates returns the set of calendar dates present in the table.
func (t SeriesTable) Dates() map[time.Time]bool {
	dates := make(map[time.Time]bool, len(t.Rows))
	for _, r := range t.Rows {
		dates[DateOf(r.Date)] = true
	}
	return dates
}

// Ordering is the stored row order of a series table.
type Ordering int

const (
	Descending Ordering = iota
	Ascending
)

func (o Ordering) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// ParseOrdering accepts "asc"/"ascending" and "desc"/"descending".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending", "":
		return Descending, nil
	default:
		return Descending, fmt.Errorf("unknown ordering %q", s)
	}
}

// DateOf truncates t to its calendar date at UTC midnight. The wall-clock
// date in t's own location is kept.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FetchWindow is the closed date interval [Start, End] a run asks for.
type FetchWindow struct {
	Start time.Time
	End   time.Time
}

// NewFetchWindow returns [today - lookbackDays, today] for the date of now.
func NewFetchWindow(now time.Time, lookbackDays int) FetchWindow {
	end := DateOf(now)
	return FetchWindow{
		Start: end.AddDate(0, 0, -lookbackDays),
		End:   end,
	}
}

// Contains reports whether the calendar date of d lies inside the window.
func (w FetchWindow) Contains(d time.Time) bool {
	day := DateOf(d)
	return !day.Before(DateOf(w.Start)) && !day.After(DateOf(w.End))
}

func (w FetchWindow) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}
