package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) *Policy {
	p := DefaultPolicy()
	p.MaxRetries = maxRetries
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	return p
}

func TestPolicy_transient(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"connection refused upper", errors.New("dial tcp: CONNECTION REFUSED"), true},
		{"deadlock", errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"), true},
		{"canceled", context.Canceled, false},
		{"deadline wrapped", errors.Join(errors.New("timeout"), context.DeadlineExceeded), false},
		{"constraint", errors.New("UNIQUE constraint failed: smoke_runs.run_id"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.transient(tt.err); got != tt.want {
				t.Fatalf("transient(%v)=%v want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPolicy_delay(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{
		100 * time.Millisecond, // attempt 0 clamps to first
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		3200 * time.Millisecond,
		5 * time.Second,
		5 * time.Second,
	}
	for attempt, d := range want {
		if got := p.delay(attempt); got != d {
			t.Fatalf("delay(%d)=%v want %v", attempt, got, d)
		}
	}
}

func TestDo_RecoversFromTransientError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), "insert run", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("syntax error at or near SELEC")
	err := Do(context.Background(), fastPolicy(3), "insert run", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), "insert step", func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	if err == nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	if !strings.Contains(err.Error(), "insert step: failed after 3 attempts") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestDo_NilPolicyUsesDefault(t *testing.T) {
	if err := Do(context.Background(), nil, "noop", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func TestDo_ContextCancelledWhileWaiting(t *testing.T) {
	p := fastPolicy(5)
	p.InitialDelay = time.Second
	p.MaxDelay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Do(ctx, p, "insert run", func(context.Context) error { return errors.New("timeout") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestValue(t *testing.T) {
	calls := 0
	n, err := Value(context.Background(), fastPolicy(1), "count", func(context.Context) (int64, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("broken pipe")
		}
		return 42, nil
	})
	if err != nil || n != 42 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
