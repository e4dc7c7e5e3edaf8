package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite log catalog.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at path and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSave inserts or updates the entry for a log that was just saved.
// LastLoaded is left as stored.
func (s *Store) RecordSave(e *Entry) error {
	if e.LastSaved.IsZero() {
		e.LastSaved = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO logs (path, title, description, position_count, desktop_count, digest, last_saved_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			position_count = excluded.position_count,
			desktop_count = excluded.desktop_count,
			digest = excluded.digest,
			last_saved_ns = excluded.last_saved_ns`,
		e.Path, e.Title, e.Description, e.PositionCount, e.DesktopCount, e.Digest, e.LastSaved.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record save: %w", err)
	}
	return nil
}

// RecordLoad inserts or updates the entry for a log that was just opened.
// LastSaved is left as stored.
func (s *Store) RecordLoad(e *Entry) error {
	if e.LastLoaded.IsZero() {
		e.LastLoaded = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO logs (path, title, description, position_count, desktop_count, digest, last_loaded_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			position_count = excluded.position_count,
			desktop_count = excluded.desktop_count,
			digest = excluded.digest,
			last_loaded_ns = excluded.last_loaded_ns`,
		e.Path, e.Title, e.Description, e.PositionCount, e.DesktopCount, e.Digest, e.LastLoaded.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record load: %w", err)
	}
	return nil
}

// Get returns the entry for path, or nil if it is not catalogued.
func (s *Store) Get(path string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT path, title, description, position_count, desktop_count, digest, last_saved_ns, last_loaded_ns
		FROM logs WHERE path = ?`, path)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get log: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, most recently used first.
func (s *Store) Recent(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT path, title, description, position_count, desktop_count, digest, last_saved_ns, last_loaded_ns
		FROM logs
		ORDER BY MAX(last_saved_ns, last_loaded_ns) DESC, path ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent logs: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Forget removes the entry for path. Unknown paths are ignored.
func (s *Store) Forget(path string) error {
	if _, err := s.db.Exec("DELETE FROM logs WHERE path = ?", path); err != nil {
		return fmt.Errorf("forget log: %w", err)
	}
	return nil
}

// SetSetting stores a value under key.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Setting returns the value stored under key and whether it was present.
func (s *Store) Setting(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

// SetLastDir remembers the directory last used for opening or saving.
func (s *Store) SetLastDir(dir string) error {
	return s.SetSetting(SettingLastDir, dir)
}

// LastDir returns the remembered directory, or "" if none.
func (s *Store) LastDir() (string, error) {
	v, _, err := s.Setting(SettingLastDir)
	return v, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var savedNs, loadedNs int64
	if err := row.Scan(&e.Path, &e.Title, &e.Description, &e.PositionCount, &e.DesktopCount,
		&e.Digest, &savedNs, &loadedNs); err != nil {
		return nil, err
	}
	if savedNs != 0 {
		e.LastSaved = time.Unix(0, savedNs)
	}
	if loadedNs != 0 {
		e.LastLoaded = time.Unix(0, loadedNs)
	}
	return &e, nil
}
