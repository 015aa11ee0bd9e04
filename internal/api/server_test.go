package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexsheetsync/internal/history"
	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
)

type gatedJob struct {
	release chan struct{}
	started chan struct{}
}

func newGatedJob() *gatedJob {
	return &gatedJob{release: make(chan struct{}), started: make(chan struct{}, 1)}
}

func (j *gatedJob) Run(ctx context.Context) (*updater.RunReport, error) {
	j.started <- struct{}{}
	select {
	case <-j.release:
	case <-ctx.Done():
	}
	return &updater.RunReport{
		FinishedAt: time.Date(2024, 5, 20, 9, 1, 0, 0, time.UTC),
		Series: []updater.SeriesReport{
			{Name: "S&P", Status: updater.StatusUpdated, Added: 2, Total: 10, Attempts: 1},
			{Name: "RUT", Status: updater.StatusFailed, Attempts: 2, Error: "timeout"},
		},
	}, nil
}

type stubHistory struct {
	history.NoopRecorder
	runs  []history.RunSummary
	err   error
	limit int
}

func (h *stubHistory) RecentRuns(_ context.Context, limit int) ([]history.RunSummary, error) {
	h.limit = limit
	return h.runs, h.err
}

func newTestServer(t *testing.T, job updater.Job, rec history.Recorder) *Server {
	t.Helper()
	l, _ := test.NewNullLogger()
	logger := utils.NewAppLoggerFrom(l)
	cfg := &utils.Config{
		Series: []utils.SeriesConfig{{Name: "S&P", Source: "a"}, {Name: "RUT", Source: "b"}},
		Output: utils.OutputConfig{Path: "s.xlsx"},
		Server: utils.ServerConfig{Port: "0"},
	}
	return NewServer(logger, cfg, updater.NewRunner(logger, job, nil), rec)
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, newGatedJob(), nil)
	rr := do(t, s, "GET", "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0","running":false}`, rr.Body.String())
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunLifecycle(t *testing.T) {
	job := newGatedJob()
	s := newTestServer(t, job, nil)

	rr := do(t, s, "GET", "/api/runs/latest")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, s, "POST", "/api/runs")
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"status":"started","series":2}`, rr.Body.String())
	<-job.started

	rr = do(t, s, "POST", "/api/runs")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, s, "GET", "/")
	assert.Contains(t, rr.Body.String(), `onclick="startRun()" disabled>`)

	close(job.release)
	s.runner.Wait()

	rr = do(t, s, "GET", "/api/runs/latest")
	require.Equal(t, http.StatusOK, rr.Code)
	var report updater.RunReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, []string{"S&P"}, report.Succeeded())
	assert.Equal(t, []string{"RUT"}, report.Failed())

	rr = do(t, s, "GET", "/")
	body := rr.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, "Fetch &amp; Update")
	assert.Contains(t, body, "timeout")
	assert.Contains(t, body, "2024-05-20 09:01:00")
}

func TestListSeries(t *testing.T) {
	s := newTestServer(t, newGatedJob(), nil)
	rr := do(t, s, "GET", "/api/series")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp SeriesListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "S&P", resp.Series[0].Name)
}

func TestListRuns(t *testing.T) {
	h := &stubHistory{runs: []history.RunSummary{{ID: 7, Succeeded: 3, Failed: 1}}}
	s := newTestServer(t, newGatedJob(), h)

	rr := do(t, s, "GET", "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, h.limit)
	var resp RunsListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.Runs[0].ID)

	rr = do(t, s, "GET", "/api/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	h.err = errors.New("db down")
	rr = do(t, s, "GET", "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 20, h.limit)
}

func TestOptionsPreflight(t *testing.T) {
	s := newTestServer(t, newGatedJob(), nil)
	rr := do(t, s, "OPTIONS", "/api/runs")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServeListener_Shutdown(t *testing.T) {
	job := newGatedJob()
	s := newTestServer(t, job, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/api/runs", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	<-job.started

	// shutdown cancels the run context, so the gated job returns
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	_, ok := s.runner.Latest()
	assert.True(t, ok)
}
