package api

import (
	"errors"
	"net/http"
	"strconv"

	"indexsheetsync/internal/updater"
)

// StartRun kicks off a background run. Only one run may be active.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.TriggerAsync(s.ctx); err != nil {
		if errors.Is(err, updater.ErrRunInProgress) {
			s.respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("Failed to start run: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	s.logger.Info("Run started from %s", r.RemoteAddr)
	s.respondWithJSON(w, http.StatusAccepted, RunStartedResponse{
		Status: "started",
		Series: len(s.config.Series),
	})
}

// LatestRun returns the report of the last finished run.
func (s *Server) LatestRun(w http.ResponseWriter, r *http.Request) {
	report, ok := s.runner.Latest()
	if !ok {
		s.respondWithError(w, http.StatusNotFound, "No run has finished yet")
		return
	}
	s.respondWithJSON(w, http.StatusOK, report)
}

// ListRuns returns recorded runs, newest first. ?limit= caps the result.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.respondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.history.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to load run history: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to load run history")
		return
	}
	s.respondWithJSON(w, http.StatusOK, RunsListResponse{Runs: runs, Total: len(runs)})
}

func (s *Server) ListSeries(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, SeriesListResponse{
		Series: s.config.Series,
		Total:  len(s.config.Series),
	})
}
