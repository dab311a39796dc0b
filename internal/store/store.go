package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

const dateFormat = "2006-01-02"

// timestampFormat is what SQLite's CURRENT_TIMESTAMP produces.
const timestampFormat = "2006-01-02 15:04:05"

// Store gives repository access to the statement database. All methods are
// safe for concurrent use; the underlying pool is capped at one connection.
type Store struct {
	db *sql.DB
}

// New wraps an opened database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func parseTimestamp(raw string) time.Time {
	if ts, err := time.Parse(timestampFormat, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Time{}
}
