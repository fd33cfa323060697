package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Dialect implements the history store dialect for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// DriverName returns the driver name for logging
func (d *Dialect) DriverName() string {
	return "sqlite"
}

// Placeholder returns SQLite-style placeholders (?)
func (d *Dialect) Placeholder(int) string {
	return "?"
}

// BoolToStorage converts bool to SQLite storage format (integer 0/1)
func (d *Dialect) BoolToStorage(b bool) any {
	if b {
		return 1
	}
	return 0
}

// TimeToStorage converts time to SQLite storage format (RFC3339Nano string)
func (d *Dialect) TimeToStorage(t time.Time) any {
	return t.UTC().Format(time.RFC3339Nano)
}

// BoolFromStorage converts SQLite integer storage to bool
func (d *Dialect) BoolFromStorage(val any) bool {
	switch v := val.(type) {
	case int64:
		return v != 0
	case int:
		return v != 0
	case bool:
		return v
	}
	return false
}

// TimeFromStorage parses the RFC3339Nano text written by TimeToStorage.
func (d *Dialect) TimeFromStorage(val any) (time.Time, error) {
	switch v := val.(type) {
	case string:
		return time.Parse(time.RFC3339Nano, v)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(v))
	case time.Time:
		return v.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("sqlite: unexpected time value %T", val)
}

// Connect opens the database; SQLite allows a single writer.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// EnsureStatements returns the table creation statements
func (d *Dialect) EnsureStatements(runs, steps string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, run_id TEXT NOT NULL UNIQUE, base_url TEXT NOT NULL, passed INTEGER NOT NULL DEFAULT 0, failed_step TEXT NULL, step_count INTEGER NOT NULL, started_at TEXT NOT NULL, finished_at TEXT NOT NULL)", runs),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, run_id TEXT NOT NULL REFERENCES %s(run_id) ON DELETE CASCADE, seq INTEGER NOT NULL, op INTEGER NOT NULL, name TEXT NOT NULL, method TEXT NOT NULL, target TEXT NOT NULL, status_code INTEGER NOT NULL, passed INTEGER NOT NULL DEFAULT 0, error TEXT NULL, elapsed_ms INTEGER NOT NULL, body TEXT NULL)", steps, runs),
	}
}
