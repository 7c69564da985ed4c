// Package database persists the operation log, replica registry, and sync
// state snapshot in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	db *sql.DB
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema initializes the database schema
func (d *DB) initSchema() error {
	schema := `
	-- Append-only operation log for recovery and replica catch-up
	CREATE TABLE IF NOT EXISTS operations (
		sequence INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_id TEXT UNIQUE NOT NULL,
		device_id TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		target_path TEXT NOT NULL,
		vector_clock TEXT NOT NULL,
		parent_operation_id TEXT,
		payload BLOB,
		payload_size INTEGER DEFAULT 0,
		payload_checksum TEXT,
		compressed INTEGER DEFAULT 0,
		compression_algorithm TEXT,
		acknowledged INTEGER DEFAULT 0,
		created_at REAL DEFAULT (unixepoch())
	);

	-- Known replicas and the last vector clock observed from each
	CREATE TABLE IF NOT EXISTS replicas (
		device_id TEXT PRIMARY KEY,
		vector_clock TEXT NOT NULL,
		last_seen REAL,
		created_at REAL DEFAULT (unixepoch())
	);

	-- Single-row snapshot of the local sync state
	CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state TEXT NOT NULL,
		updated_at REAL DEFAULT (unixepoch())
	);

	CREATE INDEX IF NOT EXISTS idx_operations_target_path ON operations(target_path);
	CREATE INDEX IF NOT EXISTS idx_operations_device_id ON operations(device_id);
	CREATE INDEX IF NOT EXISTS idx_operations_acknowledged ON operations(acknowledged);
	CREATE INDEX IF NOT EXISTS idx_replicas_last_seen ON replicas(last_seen);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (d *DB) BeginTx() (*sql.Tx, error) {
	return d.db.Begin()
}

// Exec executes a query without returning rows
func (d *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return d.db.Exec(query, args...)
}

// Query executes a query that returns rows
func (d *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return d.db.Query(query, args...)
}

// QueryRow executes a query that returns a single row
func (d *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return d.db.QueryRow(query, args...)
}
