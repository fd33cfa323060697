package postgresql

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect implements the history store dialect for PostgreSQL
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// DriverName returns the driver name for logging
func (d *Dialect) DriverName() string {
	return "postgresql"
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// BoolToStorage converts bool to PostgreSQL storage format (native bool)
func (d *Dialect) BoolToStorage(b bool) any {
	return b
}

// TimeToStorage converts time to PostgreSQL storage format (native time.Time)
func (d *Dialect) TimeToStorage(t time.Time) any {
	return t.UTC()
}

// BoolFromStorage converts PostgreSQL bool storage to bool
func (d *Dialect) BoolFromStorage(val any) bool {
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}

// TimeFromStorage converts a TIMESTAMPTZ value to UTC
func (d *Dialect) TimeFromStorage(val any) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v != nil {
			return v.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("postgresql: unexpected time value %T", val)
}

// Connect establishes a connection to PostgreSQL with connection pooling
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	// one run writes a handful of rows; keep the pool small
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

// EnsureStatements returns PostgreSQL-specific table creation statements
func (d *Dialect) EnsureStatements(runs, steps string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id SERIAL PRIMARY KEY, run_id TEXT NOT NULL UNIQUE, base_url TEXT NOT NULL, passed BOOLEAN NOT NULL DEFAULT FALSE, failed_step TEXT NULL, step_count INTEGER NOT NULL, started_at TIMESTAMPTZ NOT NULL, finished_at TIMESTAMPTZ NOT NULL)", runs),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id SERIAL PRIMARY KEY, run_id TEXT NOT NULL REFERENCES %s(run_id) ON DELETE CASCADE, seq INTEGER NOT NULL, op INTEGER NOT NULL, name TEXT NOT NULL, method TEXT NOT NULL, target TEXT NOT NULL, status_code INTEGER NOT NULL, passed BOOLEAN NOT NULL DEFAULT FALSE, error TEXT NULL, elapsed_ms BIGINT NOT NULL, body TEXT NULL)", steps, runs),
	}
}
