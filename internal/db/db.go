// Package db opens the huereka SQLite database and creates its schema.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection.
type DB struct {
	*sql.DB
}

// Open opens the database at path and ensures the schema exists.
// ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = "file::memory:"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps an in-memory database alive and
	// serializes writers.
	conn.SetMaxOpenConns(1)

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{conn}, nil
}

func initSchema(conn *sql.DB) error {
	// Activation ledger - append-only history of what each strip was told to show
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS activation_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			manager TEXT NOT NULL,
			schedule TEXT,
			routine TEXT,
			profile TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_activation_manager_ts ON activation_ledger(manager, timestamp);
		CREATE INDEX IF NOT EXISTS idx_activation_type_ts ON activation_ledger(event_type, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create activation_ledger table: %w", err)
	}

	// Resource state - versioned JSON documents keyed by (kind, id)
	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS resource_state (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			payload TEXT NOT NULL,
			version INTEGER DEFAULT 1,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		);
		CREATE INDEX IF NOT EXISTS idx_resource_state_kind ON resource_state(kind);
	`)
	if err != nil {
		return fmt.Errorf("failed to create resource_state table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
