package updater

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"indexsheetsync/internal/market"
	"indexsheetsync/internal/utils"
)

func newTestLogger() (*utils.AppLogger, *test.Hook) {
	l, hook := test.NewNullLogger()
	return utils.NewAppLoggerFrom(l), hook
}

type response struct {
	rows [][]string
	err  error
}

// fakeFetcher replays queued responses per source; once a queue runs dry the
// last response repeats.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]response
	calls     map[string]int
	closed    int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: map[string][]response{}, calls: map[string]int{}}
}

func (f *fakeFetcher) queue(source string, rs ...response) {
	f.responses[source] = append(f.responses[source], rs...)
}

func (f *fakeFetcher) Fetch(ctx context.Context, source string, window market.FetchWindow) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := f.calls[source]
	f.calls[source]++
	q := f.responses[source]
	if len(q) == 0 {
		return nil, fmt.Errorf("no response for %s", source)
	}
	if n >= len(q) {
		n = len(q) - 1
	}
	return q[n].rows, q[n].err
}

func (f *fakeFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeFetcher) opener() FetcherOpener {
	return func(ctx context.Context) (FetchSession, error) { return f, nil }
}

type fakeStore struct {
	saved    map[string]market.SeriesTable
	pending  map[string]market.SeriesTable
	readErr  map[string]error
	writeErr map[string]error
	saveErr  error
	saves    int
	closed   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		saved:    map[string]market.SeriesTable{},
		pending:  map[string]market.SeriesTable{},
		readErr:  map[string]error{},
		writeErr: map[string]error{},
	}
}

func (s *fakeStore) put(name string, rows ...market.PriceRow) {
	s.saved[name] = market.SeriesTable{Name: name, Rows: rows}
}

func (s *fakeStore) ReadSeries(name string) (market.SeriesTable, error) {
	if err := s.readErr[name]; err != nil {
		return market.SeriesTable{}, err
	}
	t := s.saved[name]
	t.Name = name
	return t, nil
}

func (s *fakeStore) WriteSeries(name string, table market.SeriesTable) error {
	if err := s.writeErr[name]; err != nil {
		return err
	}
	s.pending[name] = table
	return nil
}

func (s *fakeStore) Save() error {
	if s.saveErr != nil {
		return s.saveErr
	}
	for k, v := range s.pending {
		s.saved[k] = v
	}
	s.pending = map[string]market.SeriesTable{}
	s.saves++
	return nil
}

func (s *fakeStore) Close() error {
	s.closed++
	return nil
}

func (s *fakeStore) opener() StoreOpener {
	return func() (Store, error) { return s, nil }
}

var errBoom = errors.New("boom")

// fixedNow is inside the window of the rows built by rawRow.
var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func rawRow(date string, close string) []string {
	return []string{date, close, close, close, close, close, "1,000"}
}

func testConfig(names ...string) *utils.Config {
	cfg := &utils.Config{
		Output: utils.OutputConfig{Order: "desc"},
		Fetch:  utils.FetchConfig{LookbackDays: 30},
	}
	for _, n := range names {
		cfg.Series = append(cfg.Series, utils.SeriesConfig{Name: n, Source: "src-" + n})
	}
	return cfg
}
