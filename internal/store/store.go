// Package store keeps a history of smoke runs in sqlite or postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/mealsmoke/internal/common"
	"github.com/loykin/mealsmoke/internal/retry"
	"github.com/loykin/mealsmoke/internal/store/postgresql"
	"github.com/loykin/mealsmoke/internal/store/sqlite"
	"github.com/loykin/mealsmoke/internal/suite"
)

// Dialect hides the SQL differences between backends.
type Dialect interface {
	DriverName() string
	Placeholder(index int) string
	Connect(dsn string) (*sql.DB, error)
	EnsureStatements(runs, steps string) []string
	BoolToStorage(b bool) any
	BoolFromStorage(val any) bool
	TimeToStorage(t time.Time) any
	TimeFromStorage(val any) (time.Time, error)
}

// Run is one stored smoke run, without its steps.
type Run struct {
	RunID      string    `yaml:"run_id"`
	BaseURL    string    `yaml:"base_url"`
	Passed     bool      `yaml:"passed"`
	FailedStep string    `yaml:"failed_step,omitempty"`
	StepCount  int       `yaml:"step_count"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
}

// StepRecord is one stored step. Body is nil unless bodies are saved.
type StepRecord struct {
	Seq        int           `yaml:"seq"`
	Op         int           `yaml:"op"`
	Name       string        `yaml:"name"`
	Method     string        `yaml:"method"`
	Target     string        `yaml:"target"`
	StatusCode int           `yaml:"status_code"`
	Passed     bool          `yaml:"passed"`
	Error      string        `yaml:"error,omitempty"`
	Elapsed    time.Duration `yaml:"elapsed"`
	Body       *string       `yaml:"body,omitempty"`
}

// Store records smoke reports.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	tables   TableNames
	saveBody bool
	policy   *retry.Policy
	logger   *common.Logger
}

// Open connects to the configured backend and ensures the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		d   Dialect
		dsn string
	)
	switch NormalizeDriver(cfg.Driver) {
	case DriverSqlite:
		d, dsn = sqlite.NewDialect(), cfg.SQLite.ToDSN()
	case DriverPostgresql:
		d, dsn = postgresql.NewDialect(), cfg.Postgres.ToDSN()
		if dsn == "" {
			return nil, errors.New("store: postgres requires dsn or host")
		}
	case DriverNone:
		return nil, errors.New("store: no driver configured")
	default:
		return nil, fmt.Errorf("store: unsupported driver %q (valid: sqlite, postgresql)", cfg.Driver)
	}

	db, err := d.Connect(dsn)
	if err != nil {
		return nil, err
	}
	s, err := New(db, d, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Ensure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info("history store ready", "runs_table", s.tables.Runs)
	return s, nil
}

// New wraps an already open database. The schema is not touched.
func New(db *sql.DB, d Dialect, cfg Config) (*Store, error) {
	tables, err := Tables(cfg.TablePrefix)
	if err != nil {
		return nil, err
	}
	policy := cfg.Retry
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	return &Store{
		db:       db,
		dialect:  d,
		tables:   tables,
		saveBody: cfg.SaveResponseBody,
		policy:   policy,
		logger:   common.GetLogger().WithStore(d.DriverName()),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ensure creates the history tables when missing.
func (s *Store) Ensure(ctx context.Context) error {
	for i, q := range s.dialect.EnsureStatements(s.tables.Runs, s.tables.Steps) {
		s.logger.Debug("executing schema statement", "index", i+1, "sql", q)
		err := retry.Do(ctx, s.policy, "ensure schema", func(ctx context.Context) error {
			_, err := s.db.ExecContext(ctx, q)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to create history table %d: %w", i+1, err)
		}
	}
	return nil
}

// placeholders renders n placeholders starting at 1.
func (s *Store) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.Placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

// RecordRun stores rep and its steps in one transaction.
func (s *Store) RecordRun(ctx context.Context, rep *suite.Report) error {
	if rep == nil {
		return errors.New("store: nil report")
	}
	runQ := fmt.Sprintf("INSERT INTO %s (run_id, base_url, passed, failed_step, step_count, started_at, finished_at) VALUES (%s)",
		s.tables.Runs, s.placeholders(7))
	stepQ := fmt.Sprintf("INSERT INTO %s (run_id, seq, op, name, method, target, status_code, passed, error, elapsed_ms, body) VALUES (%s)",
		s.tables.Steps, s.placeholders(11))

	err := retry.Do(ctx, s.policy, "record run", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, runQ,
			rep.RunID, rep.BaseURL, s.dialect.BoolToStorage(rep.Passed), nullString(rep.FailedStep), len(rep.Steps),
			s.dialect.TimeToStorage(rep.StartedAt), s.dialect.TimeToStorage(rep.FinishedAt)); err != nil {
			_ = tx.Rollback()
			return err
		}
		for i, st := range rep.Steps {
			var body any
			if s.saveBody && len(st.Body) > 0 {
				body = common.MaskSensitiveData(string(st.Body))
			}
			if _, err := tx.ExecContext(ctx, stepQ,
				rep.RunID, i+1, st.Op, st.Name, st.Method, st.Target, st.StatusCode,
				s.dialect.BoolToStorage(st.Passed), nullString(st.Error), st.Elapsed.Milliseconds(), body); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		s.logger.Error("failed to record smoke run", "run_id", rep.RunID, "error", err)
		return fmt.Errorf("failed to record run %s: %w", rep.RunID, err)
	}
	s.logger.Debug("smoke run recorded", "run_id", rep.RunID, "steps", len(rep.Steps))
	return nil
}

// ListRuns returns up to limit runs, most recent first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := fmt.Sprintf("SELECT run_id, base_url, passed, failed_step, step_count, started_at, finished_at FROM %s ORDER BY id DESC", s.tables.Runs)
	var args []any
	if limit > 0 {
		q += " LIMIT " + s.dialect.Placeholder(1)
		args = append(args, limit)
	}

	return retry.Value(ctx, s.policy, "list runs", func(ctx context.Context) ([]Run, error) {
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rows.Close() }()

		var out []Run
		for rows.Next() {
			var (
				r                 Run
				passed            any
				failed            sql.NullString
				started, finished any
			)
			if err := rows.Scan(&r.RunID, &r.BaseURL, &passed, &failed, &r.StepCount, &started, &finished); err != nil {
				return nil, err
			}
			r.Passed = s.dialect.BoolFromStorage(passed)
			r.FailedStep = failed.String
			if r.StartedAt, err = s.dialect.TimeFromStorage(started); err != nil {
				return nil, err
			}
			if r.FinishedAt, err = s.dialect.TimeFromStorage(finished); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()
	})
}

// Steps returns the stored steps of runID in execution order.
func (s *Store) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	q := fmt.Sprintf("SELECT seq, op, name, method, target, status_code, passed, error, elapsed_ms, body FROM %s WHERE run_id = %s ORDER BY seq ASC",
		s.tables.Steps, s.dialect.Placeholder(1))

	return retry.Value(ctx, s.policy, "list steps", func(ctx context.Context) ([]StepRecord, error) {
		rows, err := s.db.QueryContext(ctx, q, runID)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rows.Close() }()

		var out []StepRecord
		for rows.Next() {
			var (
				r         StepRecord
				passed    any
				errText   sql.NullString
				elapsedMS int64
				body      sql.NullString
			)
			if err := rows.Scan(&r.Seq, &r.Op, &r.Name, &r.Method, &r.Target, &r.StatusCode, &passed, &errText, &elapsedMS, &body); err != nil {
				return nil, err
			}
			r.Passed = s.dialect.BoolFromStorage(passed)
			r.Error = errText.String
			r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
			if body.Valid {
				b := body.String
				r.Body = &b
			}
			out = append(out, r)
		}
		return out, rows.Err()
	})
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
