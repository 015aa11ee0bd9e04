// Package updater drives a run: fetch every configured series, reconcile it
// with the workbook, retry what failed once, then persist the results.
package updater

import (
	"context"
	"errors"
	"fmt"

	"indexsheetsync/internal/market"
)

// Fetcher returns the raw cell texts of the history table for one series.
type Fetcher interface {
	Fetch(ctx context.Context, source string, window market.FetchWindow) ([][]string, error)
}

// FetchSession is a Fetcher holding a resource (a browser) released by Close.
type FetchSession interface {
	Fetcher
	Close() error
}

// Store is the read/write contract the run needs from the workbook.
type Store interface {
	ReadSeries(name string) (market.SeriesTable, error)
	WriteSeries(name string, table market.SeriesTable) error
	Save() error
	Close() error
}

type FetcherOpener func(ctx context.Context) (FetchSession, error)

type StoreOpener func() (Store, error)

// OutcomeKind classifies the result of one fetch attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmpty
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	default:
		return "failure"
	}
}

// ErrNoRows is the error attached to an empty outcome.
var ErrNoRows = errors.New("no rows in fetch window")

// FetchOutcome is the result of one attempt for one series.
type FetchOutcome struct {
	Kind    OutcomeKind
	Rows    []market.PriceRow
	Fetched int
	Skipped int
	Err     error
}

func Success(rows []market.PriceRow, fetched, skipped int) FetchOutcome {
	return FetchOutcome{Kind: OutcomeSuccess, Rows: rows, Fetched: fetched, Skipped: skipped}
}

func Empty(fetched, skipped int) FetchOutcome {
	return FetchOutcome{Kind: OutcomeEmpty, Fetched: fetched, Skipped: skipped, Err: ErrNoRows}
}

func Failure(err error) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFailure, Err: err}
}

// Retryable reports whether the series goes into the retry pass.
func (o FetchOutcome) Retryable() bool {
	return o.Kind != OutcomeSuccess
}

// PersistenceError is a workbook read or write failure. It aborts the run.
type PersistenceError struct {
	Op     string
	Series string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Series == "" {
		return fmt.Sprintf("%s workbook: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s series %q: %v", e.Op, e.Series, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
