package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLite stores blobs in a single-table SQLite database, giving
// deployments one cache file instead of a directory tree. The caller opens
// the *sql.DB (and imports a driver, e.g. modernc.org/sqlite).
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the blobs table if needed and returns the backend.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blobs (
			name TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("migrate blobs table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM blobs WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select blob %s: %w", name, err)
	}
	return data, nil
}

func (s *SQLite) Put(name string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO blobs (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, name, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert blob %s: %w", name, err)
	}
	return nil
}
