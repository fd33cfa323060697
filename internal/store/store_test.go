package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/loykin/mealsmoke/internal/retry"
	"github.com/loykin/mealsmoke/internal/store/sqlite"
	"github.com/loykin/mealsmoke/internal/suite"
)

func sampleReport(runID string, passed bool, started time.Time) *suite.Report {
	rep := &suite.Report{
		RunID:      runID,
		BaseURL:    "http://localhost:5000/api",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Passed:     passed,
		Steps: []suite.StepResult{
			{Op: suite.OpHealth, Name: "health check", Method: "GET", Target: "/health", StatusCode: 200,
				Body: []byte(`{"status":"healthy"}`), Passed: true, Elapsed: 12 * time.Millisecond},
		},
	}
	if !passed {
		rep.FailedStep = "db check"
		rep.Steps = append(rep.Steps, suite.StepResult{Op: suite.OpDBCheck, Name: "db check", Method: "GET", Target: "/db-check",
			StatusCode: 500, Body: []byte(`{"database_status":"down","password":"hunter2"}`), Error: "marker mismatch", Elapsed: 30 * time.Millisecond})
	}
	return rep
}

func openSqlite(t *testing.T, cfg Config) *Store {
	t.Helper()
	cfg.Driver = DriverSqlite
	cfg.SQLite = sqlite.Config{Path: filepath.Join(t.TempDir(), "history.db")}
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSqliteStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := openSqlite(t, Config{SaveResponseBody: true})

	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	if err := s.RecordRun(ctx, sampleReport("run-1", true, t0)); err != nil {
		t.Fatalf("RecordRun(run-1) error = %v", err)
	}
	if err := s.RecordRun(ctx, sampleReport("run-2", false, t0.Add(time.Hour))); err != nil {
		t.Fatalf("RecordRun(run-2) error = %v", err)
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-2" || runs[1].RunID != "run-1" {
		t.Fatalf("expected most recent first, got %+v", runs)
	}
	if runs[0].Passed || runs[0].FailedStep != "db check" || runs[0].StepCount != 2 {
		t.Errorf("unexpected failed run: %+v", runs[0])
	}
	if !runs[1].Passed || runs[1].FailedStep != "" || !runs[1].StartedAt.Equal(t0) {
		t.Errorf("unexpected passed run: %+v", runs[1])
	}
	if d := runs[1].FinishedAt.Sub(runs[1].StartedAt); d != 1500*time.Millisecond {
		t.Errorf("duration = %v", d)
	}

	limited, err := s.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].RunID != "run-2" {
		t.Fatalf("ListRuns(1) = %+v, %v", limited, err)
	}

	steps, err := s.Steps(ctx, "run-2")
	if err != nil {
		t.Fatalf("Steps() error = %v", err)
	}
	if len(steps) != 2 || steps[0].Seq != 1 || steps[1].Name != "db check" {
		t.Fatalf("unexpected steps: %+v", steps)
	}
	if steps[1].Passed || steps[1].Error != "marker mismatch" || steps[1].Elapsed != 30*time.Millisecond {
		t.Errorf("unexpected failed step: %+v", steps[1])
	}
	if steps[1].Body == nil || strings.Contains(*steps[1].Body, "hunter2") {
		t.Errorf("stored body must be present and masked, got %v", steps[1].Body)
	}
}

func TestSqliteStore_BodiesNotSavedByDefault(t *testing.T) {
	ctx := context.Background()
	s := openSqlite(t, Config{})
	if err := s.RecordRun(ctx, sampleReport("run-1", true, time.Now())); err != nil {
		t.Fatal(err)
	}
	steps, err := s.Steps(ctx, "run-1")
	if err != nil || len(steps) != 1 {
		t.Fatalf("Steps() = %+v, %v", steps, err)
	}
	if steps[0].Body != nil {
		t.Errorf("expected no body, got %q", *steps[0].Body)
	}
}

func TestSqliteStore_DuplicateRunID(t *testing.T) {
	ctx := context.Background()
	s := openSqlite(t, Config{TablePrefix: "ci_"})
	rep := sampleReport("dup", true, time.Now())
	if err := s.RecordRun(ctx, rep); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, rep); err == nil {
		t.Fatal("expected unique constraint error")
	}
	runs, err := s.ListRuns(ctx, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("a failed insert must not leave partial rows: %+v, %v", runs, err)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no driver", Config{}, "no driver"},
		{"unknown driver", Config{Driver: "mysql"}, "unsupported driver"},
		{"postgres without dsn", Config{Driver: "postgres"}, "requires dsn or host"},
		{"bad prefix", Config{Driver: "sqlite", SQLite: sqlite.Config{Path: ":memory:"}, TablePrefix: "x; DROP TABLE y;"}, "invalid table_prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Open() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestTablesAndDriver(t *testing.T) {
	tn, err := Tables("qa_")
	if err != nil || tn.Runs != "qa_smoke_runs" || tn.Steps != "qa_smoke_steps" {
		t.Fatalf("Tables() = %+v, %v", tn, err)
	}
	for in, want := range map[string]string{"": DriverNone, "off": DriverNone, "SQLite3": DriverSqlite, "pg": DriverPostgresql} {
		if got := NormalizeDriver(in); got != want {
			t.Errorf("NormalizeDriver(%q) = %q, want %q", in, got, want)
		}
	}
	if (Config{Driver: "none"}).Enabled() {
		t.Error("none must disable the store")
	}
}

func fastPolicy() *retry.Policy {
	p := retry.DefaultPolicy()
	p.InitialDelay = time.Millisecond
	p.MaxDelay = time.Millisecond
	return p
}

func TestRecordRun_RetriesLockedDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	s, err := New(db, sqlite.NewDialect(), Config{Retry: fastPolicy()})
	if err != nil {
		t.Fatal(err)
	}

	insertRun := regexp.QuoteMeta("INSERT INTO smoke_runs")
	insertStep := regexp.QuoteMeta("INSERT INTO smoke_steps")
	mock.ExpectBegin()
	mock.ExpectExec(insertRun).WillReturnError(errors.New("database is locked (5) (SQLITE_BUSY)"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(insertRun).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertStep).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := s.RecordRun(context.Background(), sampleReport("run-1", true, time.Now())); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordRun_StepFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	s, err := New(db, sqlite.NewDialect(), Config{Retry: fastPolicy()})
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO smoke_runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO smoke_steps").WillReturnError(errors.New("NOT NULL constraint failed: smoke_steps.name"))
	mock.ExpectRollback()

	err = s.RecordRun(context.Background(), sampleReport("run-1", true, time.Now()))
	if err == nil || !strings.Contains(err.Error(), "failed to record run run-1") {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListRuns_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	s, err := New(db, sqlite.NewDialect(), Config{Retry: fastPolicy()})
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery("SELECT run_id .* FROM smoke_runs ORDER BY id DESC LIMIT").
		WithArgs(5).
		WillReturnError(errors.New("no such table: smoke_runs"))

	if _, err := s.ListRuns(context.Background(), 5); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
