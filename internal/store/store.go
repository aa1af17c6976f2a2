// Package store persists sector threads and the synthesis history in SQLite.
//
// It is the persistence collaborator for the orchestrator: threads are
// loaded once at start-up and saved after every sweep or chat.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"kabuten/internal/logging"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is a SQLite-backed thread and synthesis store. It is safe for
// concurrent use.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string

	now func() time.Time
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening store at %s", path)

	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory databases exist per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
		}
	}

	s := &Store{db: db, dbPath: path, now: time.Now}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.StoreDebug("Store ready at %s", path)
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	// Latest thread per sector, stored as one JSON array.
	threadTable := `
	CREATE TABLE IF NOT EXISTS agent_threads (
		sector_key TEXT PRIMARY KEY,
		thread TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT NOT NULL,
		last_sweep_at TEXT
	);
	`

	// Append-only sweep history.
	synthesisTable := `
	CREATE TABLE IF NOT EXISTS sector_syntheses (
		id TEXT PRIMARY KEY,
		sector_key TEXT NOT NULL,
		designation TEXT NOT NULL,
		posture TEXT NOT NULL,
		conviction REAL NOT NULL,
		thesis_summary TEXT NOT NULL DEFAULT '',
		key_drivers TEXT NOT NULL DEFAULT '[]',
		key_risks TEXT NOT NULL DEFAULT '[]',
		company_signals TEXT NOT NULL DEFAULT '[]',
		material_findings TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_syntheses_sector ON sector_syntheses(sector_key, created_at);
	`

	for _, stmt := range []string{threadTable, synthesisTable} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
