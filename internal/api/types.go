package api

import (
	"indexsheetsync/internal/history"
	"indexsheetsync/internal/utils"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Running bool   `json:"running"`
}

// RunStartedResponse is returned when a background run was accepted
type RunStartedResponse struct {
	Status string `json:"status"`
	Series int    `json:"series"`
}

type SeriesListResponse struct {
	Series []utils.SeriesConfig `json:"series"`
	Total  int                  `json:"total"`
}

type RunsListResponse struct {
	Runs  []history.RunSummary `json:"runs"`
	Total int                  `json:"total"`
}
