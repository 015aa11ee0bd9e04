package migrations

import (
	"database/sql"
	"fmt"

	"indexsheetsync/internal/utils"
)

type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
}

var Migrations = []Migration{
	{
		Version:     1,
		Description: "Create sync run history",
		Up:          CreateSyncRuns,
		Down:        DropSyncRuns,
	},
	// Add future migrations here
}

// CreateMigrationsTable creates the migrations table if it doesn't exist
func CreateMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            description TEXT NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	return err
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %v", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %v", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RunMigrations runs all pending migrations, each in its own transaction
// together with its schema_migrations record.
func RunMigrations(db *sql.DB, logger utils.Logger) error {
	if err := CreateMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		if applied[m.Version] {
			continue
		}
		logger.Info("Running migration %d: %s", m.Version, m.Description)

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %v", m.Version, err)
		}
		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			m.Version,
			m.Description,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %v", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %v", m.Version, err)
		}

		logger.Info("Migration %d completed successfully", m.Version)
	}

	return nil
}

// RollbackLastMigration undoes the most recently applied migration.
func RollbackLastMigration(db *sql.DB, logger utils.Logger) error {
	var lastVersion int
	err := db.QueryRow(`
        SELECT version FROM schema_migrations
        ORDER BY version DESC LIMIT 1
    `).Scan(&lastVersion)
	if err != nil {
		return fmt.Errorf("failed to get last migration: %v", err)
	}

	m, ok := Find(lastVersion)
	if !ok || m.Down == nil {
		return fmt.Errorf("migration %d cannot be rolled back", lastVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.Down(tx); err != nil {
		return fmt.Errorf("rollback of migration %d failed: %v", lastVersion, err)
	}
	if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, lastVersion); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Info("Rolled back migration %d: %s", m.Version, m.Description)
	return nil
}

// Find returns the migration with the given version.
func Find(version int) (Migration, bool) {
	for _, m := range Migrations {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}
