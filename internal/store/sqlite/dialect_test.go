package sqlite

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDialect_Placeholder(t *testing.T) {
	d := NewDialect()
	for _, i := range []int{1, 2, 9} {
		if got := d.Placeholder(i); got != "?" {
			t.Errorf("Placeholder(%d) = %q, want ?", i, got)
		}
	}
}

func TestDialect_BoolRoundTrip(t *testing.T) {
	d := NewDialect()
	if got := d.BoolToStorage(true); !reflect.DeepEqual(got, 1) {
		t.Errorf("BoolToStorage(true) = %v", got)
	}
	if got := d.BoolToStorage(false); !reflect.DeepEqual(got, 0) {
		t.Errorf("BoolToStorage(false) = %v", got)
	}
	tests := []struct {
		in   any
		want bool
	}{
		{int64(1), true},
		{int64(0), false},
		{1, true},
		{"1", false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := d.BoolFromStorage(tt.in); got != tt.want {
			t.Errorf("BoolFromStorage(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDialect_TimeRoundTrip(t *testing.T) {
	d := NewDialect()
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.FixedZone("KST", 9*3600))

	stored := d.TimeToStorage(ts)
	s, ok := stored.(string)
	if !ok || s != "2026-03-14T00:26:53.589793Z" {
		t.Fatalf("TimeToStorage() = %#v", stored)
	}
	got, err := d.TimeFromStorage(s)
	if err != nil || !got.Equal(ts) {
		t.Fatalf("TimeFromStorage() = %v, %v", got, err)
	}
	if _, err := d.TimeFromStorage(42); err == nil {
		t.Fatal("expected error for non-text value")
	}
}

func TestDialect_EnsureStatements(t *testing.T) {
	stmts := NewDialect().EnsureStatements("t_smoke_runs", "t_smoke_steps")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS t_smoke_runs") {
		t.Errorf("unexpected runs statement: %s", stmts[0])
	}
	if !strings.Contains(stmts[1], "REFERENCES t_smoke_runs(run_id)") {
		t.Errorf("unexpected steps statement: %s", stmts[1])
	}
}

func TestDialect_ConnectMemory(t *testing.T) {
	db, err := NewDialect().Connect(":memory:")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	if db.Stats().MaxOpenConnections != 1 {
		t.Errorf("expected a single connection, got %d", db.Stats().MaxOpenConnections)
	}
}

func TestConfig_ToDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"default path", Config{}, "file:mealsmoke.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{"custom path", Config{Path: "/tmp/h.db"}, "file:/tmp/h.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{"memory", Config{Path: ":memory:"}, ":memory:"},
		{"dsn wins", Config{Path: "x.db", DSN: "file:y.db"}, "file:y.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ToDSN(); got != tt.want {
				t.Errorf("ToDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
