package migrations

import (
	"database/sql"
	"fmt"
)

func CreateSyncRuns(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS sync_runs (
			id SERIAL PRIMARY KEY,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
			window_start DATE NOT NULL,
			window_end DATE NOT NULL,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sync_runs: %v", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS sync_run_series (
			run_id INTEGER NOT NULL REFERENCES sync_runs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			fetched INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			added INTEGER NOT NULL,
			total INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, name)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sync_run_series: %v", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs (started_at DESC)`)
	return err
}

func DropSyncRuns(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP TABLE IF EXISTS sync_run_series;
		DROP TABLE IF EXISTS sync_runs;
	`)
	return err
}
