package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
)

func testLogger() utils.Logger {
	l, _ := test.NewNullLogger()
	return utils.NewAppLoggerFrom(l)
}

func sampleReport() *updater.RunReport {
	start := time.Now().UTC().Truncate(time.Second)
	return &updater.RunReport{
		StartedAt:   start,
		FinishedAt:  start.Add(time.Minute),
		WindowStart: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
		Series: []updater.SeriesReport{
			{Name: "S&P", Source: "src", Status: updater.StatusUpdated, Attempts: 1, Fetched: 21, Added: 3, Total: 40},
			{Name: "RUT", Source: "src", Status: updater.StatusFailed, Attempts: 2, Error: "timeout"},
		},
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	r, err := Open("", testLogger())
	require.NoError(t, err)
	assert.IsType(t, NoopRecorder{}, r)

	assert.NoError(t, r.RecordRun(context.Background(), sampleReport()))
	runs, err := r.RecentRuns(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}

func TestPostgresRecorder(t *testing.T) {
	dsn := os.Getenv("INDEXSYNC_TEST_DSN")
	if dsn == "" {
		t.Skip("INDEXSYNC_TEST_DSN not set")
	}

	r, err := NewPostgresRecorder(dsn, testLogger())
	require.NoError(t, err)
	defer r.Close()

	report := sampleReport()
	require.NoError(t, r.RecordRun(context.Background(), report))

	runs, err := r.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)
	assert.True(t, report.StartedAt.Equal(runs[0].StartedAt))
}
