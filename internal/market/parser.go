package market

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// minColumns is the date plus the five price columns.
const minColumns = 6

var (
	ErrTooFewColumns = errors.New("too few columns")
	ErrBadDate       = errors.New("unrecognized date")
	ErrNoPrices      = errors.New("no price values")
)

// DateLayouts are the textual date forms a date cell may take, tried in order.
var DateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate reads a date cell using DateLayouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// ParseDecimal strips grouping commas and reads a decimal. Blank, "-" and
// unparseable cells are null.
func ParseDecimal(s string) decimal.NullDecimal {
	s = cleanNumber(s)
	if s == "" || s == "-" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseVolume reads a non-negative integer volume. Anything else is null.
func ParseVolume(s string) null.Int {
	s = cleanNumber(s)
	if s == "" || s == "-" {
		return null.Int{}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return null.Int{}
	}
	return null.IntFrom(v)
}

func cleanNumber(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// ParseRow converts the cells of one table row. A missing column, an
// unreadable date or a row without a single readable price rejects the row;
// other bad price or volume cells become null.
func ParseRow(cells []string) (PriceRow, error) {
	if len(cells) < minColumns {
		return PriceRow{}, fmt.Errorf("%w: got %d, need %d", ErrTooFewColumns, len(cells), minColumns)
	}

	date, err := ParseDate(cells[0])
	if err != nil {
		return PriceRow{}, err
	}

	row := PriceRow{
		Date:     date,
		Open:     ParseDecimal(cells[1]),
		High:     ParseDecimal(cells[2]),
		Low:      ParseDecimal(cells[3]),
		Close:    ParseDecimal(cells[4]),
		AdjClose: ParseDecimal(cells[5]),
	}
	if !row.Open.Valid && !row.High.Valid && !row.Low.Valid && !row.Close.Valid && !row.AdjClose.Valid {
		return PriceRow{}, fmt.Errorf("%w for %s", ErrNoPrices, date.Format(time.DateOnly))
	}
	if len(cells) > minColumns {
		row.Volume = ParseVolume(cells[6])
	}
	return row, nil
}

// ParseRows parses every raw row and returns the good ones in input order
// together with the number of rows skipped.
func ParseRows(raw [][]string) ([]PriceRow, int) {
	rows := make([]PriceRow, 0, len(raw))
	skipped := 0
	for _, cells := range raw {
		row, err := ParseRow(cells)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}
