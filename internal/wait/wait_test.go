package wait

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loykin/mealsmoke/internal/httpc"
)

func TestFor_Disabled(t *testing.T) {
	if err := For(context.Background(), (&httpc.Httpc{}).New(), Config{}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestFor_SucceedsAfterRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := (&httpc.Httpc{BaseURL: srv.URL + "/api"}).New()
	err := For(context.Background(), client, Config{URL: "/health", Interval: 10 * time.Millisecond, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected 3 probes, got %d", got)
	}
}

func TestFor_HeadAndCustomStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := For(context.Background(), (&httpc.Httpc{}).New(), Config{URL: srv.URL, Method: "head", Status: http.StatusNoContent})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFor_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := For(context.Background(), (&httpc.Httpc{}).New(), Config{URL: srv.URL, Interval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond})
	if err == nil || !strings.Contains(err.Error(), "timeout waiting for") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestConfig_normalized(t *testing.T) {
	c := Config{URL: " /health ", Method: "post"}.normalized()
	if c.URL != "/health" || c.Method != http.MethodGet || c.Status != 200 || c.Timeout != DefaultTimeout || c.Interval != DefaultInterval {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}
