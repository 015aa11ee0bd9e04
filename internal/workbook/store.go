// Package workbook stores series tables in an xlsx workbook, one sheet per
// series, inside a fixed band of columns so that other content on the sheet
// survives every write.
package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"indexsheetsync/internal/market"
	"indexsheetsync/internal/utils"
)

// Layout is where the band sits on each sheet.
type Layout struct {
	StartColumn string
	HeaderRow   int
	DateFormat  string

	startCol int
}

// NewLayout validates the band position; the header goes at
// (StartColumn, HeaderRow) and data starts on the row below.
func NewLayout(startColumn string, headerRow int, dateFormat string) (Layout, error) {
	col, err := excelize.ColumnNameToNumber(startColumn)
	if err != nil {
		return Layout{}, fmt.Errorf("start column: %w", err)
	}
	if headerRow < 1 {
		return Layout{}, fmt.Errorf("header row must be at least 1, got %d", headerRow)
	}
	if dateFormat == "" {
		dateFormat = "2006/01/02"
	}
	return Layout{StartColumn: startColumn, HeaderRow: headerRow, DateFormat: dateFormat, startCol: col}, nil
}

// LayoutFromConfig builds the layout from output settings.
func LayoutFromConfig(c utils.OutputConfig) (Layout, error) {
	return NewLayout(c.StartColumn, c.HeaderRow, c.DateFormat)
}

func (l Layout) firstDataRow() int {
	return l.HeaderRow + 1
}

func (l Layout) cell(offset, row int) string {
	name, _ := excelize.CoordinatesToCellName(l.startCol+offset, row)
	return name
}

// Workbook is an open workbook. Writes stay in memory until Save.
type Workbook struct {
	path   string
	layout Layout
	logger utils.Logger
	file   *excelize.File
}

// Open loads path, or starts an empty workbook when the file is missing or
// zero-length.
func Open(path string, layout Layout, logger utils.Logger) (*Workbook, error) {
	var f *excelize.File

	info, err := os.Stat(path)
	switch {
	case err == nil && info.Size() > 0:
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
		}
		logger.Debug("Opened workbook %s with sheets %v", path, f.GetSheetList())
	case err == nil || errors.Is(err, os.ErrNotExist):
		f = excelize.NewFile()
		logger.Info("Workbook %s not found, starting a new one", path)
	default:
		return nil, fmt.Errorf("failed to stat workbook %s: %w", path, err)
	}

	return &Workbook{path: path, layout: layout, logger: logger, file: f}, nil
}

func (w *Workbook) hasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func (w *Workbook) bandRows(name string) ([][]string, error) {
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	band := make([][]string, 0, len(rows))
	for i := w.layout.firstDataRow() - 1; i < len(rows); i++ {
		band = append(band, sliceBand(rows[i], w.layout.startCol-1, len(market.Columns)))
	}
	return band, nil
}

func sliceBand(row []string, from, width int) []string {
	cells := make([]string, width)
	for j := 0; j < width; j++ {
		if from+j < len(row) {
			cells[j] = strings.TrimSpace(row[from+j])
		}
	}
	return cells
}

// ReadSeries returns the stored table for name, empty when the sheet does not
// exist. Band rows without a readable date are not part of the table;
// WriteSeries keeps them on the sheet.
func (w *Workbook) ReadSeries(name string) (market.SeriesTable, error) {
	table := market.SeriesTable{Name: name}
	if !w.hasSheet(name) {
		return table, nil
	}

	band, err := w.bandRows(name)
	if err != nil {
		return table, err
	}

	for i, cells := range band {
		if blank(cells) {
			continue
		}
		date, ok := w.parseStoredDate(cells[0])
		if !ok {
			w.logger.Warn("Row %d on sheet %s has no readable date (%q), keeping it as is",
				w.layout.firstDataRow()+i, name, cells[0])
			continue
		}
		table.Rows = append(table.Rows, market.PriceRow{
			Date:     date,
			Open:     market.ParseDecimal(cells[1]),
			High:     market.ParseDecimal(cells[2]),
			Low:      market.ParseDecimal(cells[3]),
			Close:    market.ParseDecimal(cells[4]),
			AdjClose: market.ParseDecimal(cells[5]),
			Volume:   parseStoredVolume(cells[6]),
		})
	}
	return table, nil
}

func (w *Workbook) parseStoredDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(w.layout.DateFormat, s); err == nil {
		return market.DateOf(t), true
	}
	if t, err := market.ParseDate(s); err == nil {
		return t, true
	}
	// date cells written as real dates come back as serial numbers
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return market.DateOf(t), true
		}
	}
	// "2024-05-01 00:00:00" style text
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return market.DateOf(t), true
	}
	return time.Time{}, false
}

func parseStoredVolume(s string) null.Int {
	if v := market.ParseVolume(s); v.Valid {
		return v
	}
	d := market.ParseDecimal(s)
	if !d.Valid || !d.Decimal.IsInteger() || d.Decimal.IsNegative() {
		return null.Int{}
	}
	return null.IntFrom(d.Decimal.IntPart())
}

// WriteSeries rewrites the band of sheet name with the header and rows of
// table. Band rows that ReadSeries could not read are written back below the
// table rows. Cells outside the band are left as they are.
func (w *Workbook) WriteSeries(name string, table market.SeriesTable) error {
	staleUntil := 0
	var kept [][]interface{}
	if w.hasSheet(name) {
		band, err := w.bandRows(name)
		if err != nil {
			return err
		}
		for i, cells := range band {
			if blank(cells) {
				continue
			}
			staleUntil = w.layout.firstDataRow() + i
			if _, ok := w.parseStoredDate(cells[0]); !ok {
				kept = append(kept, rawValues(cells))
			}
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	header := make([]interface{}, len(market.Columns))
	for i, c := range market.Columns {
		header[i] = c
	}
	if err := w.file.SetSheetRow(name, w.layout.cell(0, w.layout.HeaderRow), &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", name, err)
	}

	row := w.layout.firstDataRow()
	for _, r := range table.Rows {
		values := w.rowValues(r)
		if err := w.file.SetSheetRow(name, w.layout.cell(0, row), &values); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", row, name, err)
		}
		row++
	}
	for _, values := range kept {
		values := values
		if err := w.file.SetSheetRow(name, w.layout.cell(0, row), &values); err != nil {
			return fmt.Errorf("failed to keep row %d on %s: %w", row, name, err)
		}
		row++
	}

	empty := make([]interface{}, len(market.Columns))
	for ; row <= staleUntil; row++ {
		if err := w.file.SetSheetRow(name, w.layout.cell(0, row), &empty); err != nil {
			return fmt.Errorf("failed to clear row %d on %s: %w", row, name, err)
		}
	}

	if len(kept) > 0 {
		w.logger.Warn("Kept %d unreadable rows below the data on sheet %s", len(kept), name)
	}
	w.logger.Debug("Wrote %d rows to sheet %s at %s", table.Len(), name, w.layout.cell(0, w.layout.HeaderRow))
	return nil
}

// rawValues turns raw band cells back into cell values; numbers stay numbers.
func rawValues(cells []string) []interface{} {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		switch f, err := strconv.ParseFloat(c, 64); {
		case c == "":
		case err == nil:
			values[i] = f
		default:
			values[i] = c
		}
	}
	return values
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func (w *Workbook) rowValues(r market.PriceRow) []interface{} {
	values := []interface{}{
		r.Date.Format(w.layout.DateFormat),
		priceValue(r.Open),
		priceValue(r.High),
		priceValue(r.Low),
		priceValue(r.Close),
		priceValue(r.AdjClose),
		nil,
	}
	if r.Volume.Valid {
		values[6] = r.Volume.Int64
	}
	return values
}

func priceValue(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	f, _ := d.Decimal.Float64()
	return f
}

// Save writes the workbook next to its target and renames it into place, so
// a failed save never leaves a half-written file behind.
func (w *Workbook) Save() error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := w.file.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}

	w.logger.Info("All data written to %s", w.path)
	return nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// Sheets lists the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}
