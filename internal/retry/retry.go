// Package retry retries history store statements that fail with transient
// driver errors. Smoke steps themselves are never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/mealsmoke/internal/common"
)

// Policy controls how often and how fast a store statement is retried.
type Policy struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	// Transient lists lower-case error fragments that are worth another attempt.
	Transient []string `mapstructure:"transient"`
}

// DefaultPolicy suits a local sqlite file or a nearby postgres.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Transient: []string{
			"connection refused",
			"connection reset",
			"timeout",
			"temporary failure",
			"deadlock",
			"database is locked",
			"sqlite_busy",
			"broken pipe",
		},
	}
}

func (p *Policy) transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range p.Transient {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// delay returns the pause before retry number attempt (1-based).
func (p *Policy) delay(attempt int) time.Duration {
	if attempt <= 1 {
		return p.InitialDelay
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, fails permanently or the retries run out.
// label names the statement in logs, e.g. "insert run".
func Do(ctx context.Context, p *Policy, label string, op func(context.Context) error) error {
	if p == nil {
		p = DefaultPolicy()
	}
	logger := common.GetLogger().WithComponent("store-retry")

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			if attempt > 1 {
				logger.Info("store statement succeeded after retry", "statement", label, "attempt", attempt)
			}
			return nil
		}
		if !p.transient(err) {
			return err
		}
		if attempt > p.MaxRetries {
			break
		}
		wait := p.delay(attempt)
		logger.Warn("store statement failed, retrying",
			"statement", label,
			"error", err,
			"attempt", attempt,
			"retry_delay", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: cancelled during retry: %w", label, ctx.Err())
		case <-t.C:
		}
	}

	logger.Error("store statement failed after all attempts", "statement", label, "error", err, "attempts", p.MaxRetries+1)
	return fmt.Errorf("%s: failed after %d attempts: %w", label, p.MaxRetries+1, err)
}

// Value is Do for statements that produce a result.
func Value[T any](ctx context.Context, p *Policy, label string, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, label, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
