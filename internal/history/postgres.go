package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"indexsheetsync/internal/migrations"
	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
)

// PostgresRecorder writes run history to PostgreSQL.
type PostgresRecorder struct {
	db     *sql.DB
	logger utils.Logger
}

// NewPostgresRecorder connects to dsn and applies pending migrations.
func NewPostgresRecorder(dsn string, logger utils.Logger) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresRecorder{db: db, logger: logger}, nil
}

// Open picks the recorder for dsn; an empty dsn disables history.
func Open(dsn string, logger utils.Logger) (Recorder, error) {
	if dsn == "" {
		logger.Debug("No history database configured")
		return NoopRecorder{}, nil
	}
	return NewPostgresRecorder(dsn, logger)
}

func (r *PostgresRecorder) RecordRun(ctx context.Context, report *updater.RunReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sync_runs (started_at, finished_at, window_start, window_end, succeeded, failed, error)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id
	`,
		report.StartedAt,
		report.FinishedAt,
		report.WindowStart,
		report.WindowEnd,
		len(report.Succeeded()),
		len(report.Failed()),
		report.Error,
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sync_run_series (run_id, name, source, status, attempts, fetched, skipped, added, total, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range report.Series {
		_, err := stmt.ExecContext(ctx, runID, s.Name, s.Source, string(s.Status),
			s.Attempts, s.Fetched, s.Skipped, s.Added, s.Total, s.Error)
		if err != nil {
			return fmt.Errorf("failed to insert series %s: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.logger.Debug("Recorded run %d with %d series", runID, len(report.Series))
	return nil
}

func (r *PostgresRecorder) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, window_start, window_end, succeeded, failed, COALESCE(error, '')
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.WindowStart, &s.WindowEnd, &s.Succeeded, &s.Failed, &s.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
