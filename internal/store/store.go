// Package store implements the Token & Meeting Stores (C4): two tables in a
// single local SQLite file, opened in WAL mode so a crash mid-write cannot
// corrupt either table, following the schema-constants-plus-ON-CONFLICT
// idiom of the teacher's SQL session store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/m-AI-by-moveo/monday-for-agents/internal/logger"
)

const createTokensSchemaSQL = `
CREATE TABLE IF NOT EXISTS oauth_tokens (
    subject_id       TEXT PRIMARY KEY,
    access_token     TEXT NOT NULL,
    refresh_token    TEXT NOT NULL,
    expiry_epoch_ms  INTEGER NOT NULL,
    scope            TEXT NOT NULL
)`

const createMeetingsSchemaSQL = `
CREATE TABLE IF NOT EXISTS meetings (
    event_id     TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    processed_at INTEGER NOT NULL,
    status       TEXT NOT NULL,
    task_ids     TEXT
)`

// ErrNotFound is returned by Get-style lookups that find no row.
var ErrNotFound = errors.New("store: no such record")

// Store owns the single SQLite file backing both the token and meeting
// tables. One writer (this process), closed exactly once on graceful
// shutdown (spec §5).
type Store struct {
	db  *sql.DB
	log interface {
		Info(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

// Open opens (creating if absent) the SQLite file at path, enables WAL
// journaling, and ensures both schemas exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, stmt := range []string{createTokensSchemaSQL, createMeetingsSchemaSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: initializing schema: %w", err)
		}
	}

	return &Store{db: db, log: logger.For("store")}, nil
}

// Close closes the underlying database file. Safe to call once at shutdown.
func (s *Store) Close() error {
	s.log.Info("closing store")
	return s.db.Close()
}
