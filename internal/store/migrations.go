package store

import (
	"database/sql"
	"fmt"
	"slices"
	"time"
)

// Migration is one numbered schema change with its inverse.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// migrations are applied in order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema with logs and settings",
		Up:          migrationV1Up,
		Down:        migrationV1Down,
	},
	{
		Version:     2,
		Description: "Index logs by activity time",
		Up:          migrationV2Up,
		Down:        migrationV2Down,
	},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS logs (
    path            TEXT PRIMARY KEY,
    title           TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    position_count  INTEGER NOT NULL DEFAULT 0,
    desktop_count   INTEGER NOT NULL DEFAULT 0,
    digest          BLOB,
    last_saved_ns   INTEGER NOT NULL DEFAULT 0,
    last_loaded_ns  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
    key     TEXT PRIMARY KEY,
    value   TEXT NOT NULL
);
`

const migrationV1Down = `
DROP TABLE IF EXISTS settings;
DROP TABLE IF EXISTS logs;
`

const migrationV2Up = `
CREATE INDEX IF NOT EXISTS idx_logs_saved ON logs(last_saved_ns);
CREATE INDEX IF NOT EXISTS idx_logs_loaded ON logs(last_loaded_ns);
`

const migrationV2Down = `
DROP INDEX IF EXISTS idx_logs_loaded;
DROP INDEX IF EXISTS idx_logs_saved;
`

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    applied_at  INTEGER NOT NULL,
    description TEXT
)`

// inTx runs fn in a transaction, rolling back if it fails.
func inTx(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// MigrateDB brings the schema up to the newest migration. Each migration
// and its schema_migrations row commit together.
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec(createMigrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	v, err := currentVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= v {
			continue
		}
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Up); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
				m.Version, time.Now().UnixNano(), m.Description,
			)
			if err != nil {
				return fmt.Errorf("record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RollbackMigration reverts the newest applied migration.
func RollbackMigration(db *sql.DB) error {
	v, err := currentVersion(db)
	if err != nil {
		return err
	}
	if v == 0 {
		return fmt.Errorf("no migrations to rollback")
	}
	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == v })
	if i < 0 {
		return fmt.Errorf("migration %d not found", v)
	}

	return inTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(migrations[i].Down); err != nil {
			return fmt.Errorf("rollback migration %d: %w", v, err)
		}
		if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", v); err != nil {
			return fmt.Errorf("remove migration record: %w", err)
		}
		return nil
	})
}

func currentVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	return v, nil
}

// SchemaVersion returns the newest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	return currentVersion(s.db)
}
