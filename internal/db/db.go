package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPath is the default database location
const DefaultPath = "/var/lib/mdwatch/history.db"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	path string
}

// New opens or creates the SQLite database at the given path
func New(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// migrate runs the database schema migrations
func (d *DB) migrate() error {
	// Create schema version table
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Get current version
	var version int
	err = d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	// Run migrations
	migrations := []string{
		migrationV1,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := d.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the initial schema
const migrationV1 = `
-- Arrays: last known state of every array ever seen
CREATE TABLE IF NOT EXISTS arrays (
    id INTEGER PRIMARY KEY,
    devnm TEXT UNIQUE NOT NULL,
    level TEXT,
    state TEXT NOT NULL,
    raid_disks INTEGER DEFAULT 0,
    degraded INTEGER DEFAULT 0,
    blocks INTEGER DEFAULT 0,
    pattern TEXT,
    metadata TEXT,
    members TEXT,

    first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_arrays_state ON arrays(state);

-- State transition history
CREATE TABLE IF NOT EXISTS array_events (
    id INTEGER PRIMARY KEY,
    devnm TEXT NOT NULL,
    event_type TEXT NOT NULL,
    old_state TEXT,
    new_state TEXT,
    details TEXT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_devnm ON array_events(devnm);
CREATE INDEX IF NOT EXISTS idx_events_time ON array_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON array_events(event_type);

-- Sampled background sync progress
CREATE TABLE IF NOT EXISTS sync_progress (
    id INTEGER PRIMARY KEY,
    devnm TEXT NOT NULL,
    kind TEXT NOT NULL,
    percent INTEGER NOT NULL,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_progress_devnm ON sync_progress(devnm);
CREATE INDEX IF NOT EXISTS idx_progress_time ON sync_progress(timestamp);
`

// ArrayRecord represents an array in the database
type ArrayRecord struct {
	ID        int64
	Devnm     string
	Level     string
	State     string
	RaidDisks int
	Degraded  int
	Blocks    int64
	Pattern   string
	Metadata  string
	Members   string
	FirstSeen time.Time
	LastSeen  time.Time
}

// ArrayEvent represents a state change event
type ArrayEvent struct {
	ID        int64
	Devnm     string
	EventType string
	OldState  string
	NewState  string
	Details   string
	Timestamp time.Time
}

// ProgressSample represents one sampled sync percentage
type ProgressSample struct {
	ID        int64
	Devnm     string
	Kind      string
	Percent   int
	Timestamp time.Time
}

// Event types
const (
	EventAppeared     = "appeared"
	EventVanished     = "vanished"
	EventDegraded     = "degraded"
	EventRecovered    = "recovered"
	EventStateChanged = "state_changed"
	EventSyncStarted  = "sync_started"
	EventSyncFinished = "sync_finished"
)
