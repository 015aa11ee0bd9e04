package market

import (
	"sort"
	"time"
)

// FilterWindow keeps the rows whose date lies in w, preserving order.
func FilterWindow(rows []PriceRow, w FetchWindow) []PriceRow {
	kept := make([]PriceRow, 0, len(rows))
	for _, r := range rows {
		if w.Contains(r.Date) {
			kept = append(kept, r)
		}
	}
	return kept
}

// Merge reconciles incoming rows with the existing table. Incoming rows
// outside w are dropped, a date already stored keeps its stored row, and the
// result is sorted by date in the requested order. Stored rows are never
// removed, whatever their date.
func Merge(existing SeriesTable, incoming []PriceRow, w FetchWindow, order Ordering) SeriesTable {
	seen := make(map[time.Time]bool, len(existing.Rows)+len(incoming))
	merged := make([]PriceRow, 0, len(existing.Rows)+len(incoming))

	// Duplicate dates already on disk collapse to their first occurrence.
	for _, r := range existing.Rows {
		day := DateOf(r.Date)
		if seen[day] {
			continue
		}
		seen[day] = true
		r.Date = day
		merged = append(merged, r)
	}

	for _, r := range FilterWindow(incoming, w) {
		day := DateOf(r.Date)
		if seen[day] {
			continue
		}
		seen[day] = true
		r.Date = day
		merged = append(merged, r)
	}

	SortRows(merged, order)
	return SeriesTable{Name: existing.Name, Rows: merged}
}

// Added counts the rows of after whose dates are not in before.
func Added(before, after SeriesTable) int {
	dates := before.Dates()
	n := 0
	for _, r := range after.Rows {
		if !dates[DateOf(r.Date)] {
			n++
		}
	}
	return n
}

// SortRows sorts rows in place by date.
func SortRows(rows []PriceRow, order Ordering) {
	sort.SliceStable(rows, func(i, j int) bool {
		if order == Ascending {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Date.After(rows[j].Date)
	})
}
