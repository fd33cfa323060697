// Package wait polls an HTTP endpoint until the service under test is up.
package wait

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/mealsmoke/internal/common"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultInterval = 2 * time.Second
)

// Config describes the readiness probe. An empty URL disables waiting.
// A URL starting with "/" is resolved against the client's base URL.
type Config struct {
	URL      string        `mapstructure:"url"`
	Method   string        `mapstructure:"method"`
	Status   int           `mapstructure:"status"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// Enabled reports whether a probe URL is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.URL) != "" }

func (c Config) normalized() Config {
	c.URL = strings.TrimSpace(c.URL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method != http.MethodHead {
		c.Method = http.MethodGet
	}
	if c.Status == 0 {
		c.Status = http.StatusOK
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}

// For polls cfg.URL through client until it answers cfg.Status, the timeout
// elapses or ctx is done.
func For(ctx context.Context, client *resty.Client, cfg Config) error {
	if !cfg.Enabled() {
		return nil
	}
	cfg = cfg.normalized()
	logger := common.GetLogger().WithComponent("wait").WithRequest(cfg.Method, cfg.URL)
	logger.Info("waiting for service", "expected_status", cfg.Status, "timeout", cfg.Timeout)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var (
		lastStatus int
		lastErr    error
	)
	for attempt := 1; ; attempt++ {
		resp, err := client.R().SetContext(ctx).Execute(cfg.Method, cfg.URL)
		lastErr = err
		if resp != nil {
			lastStatus = resp.StatusCode()
		}
		if err == nil && lastStatus == cfg.Status {
			logger.Info("service ready", "attempts", attempt)
			return nil
		}
		logger.Debug("service not ready", "attempt", attempt, "status", lastStatus, "error", err)

		t := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			if lastErr != nil {
				return fmt.Errorf("wait: timeout waiting for %s to return %d: %w", cfg.URL, cfg.Status, lastErr)
			}
			return fmt.Errorf("wait: timeout waiting for %s to return %d (last=%d)", cfg.URL, cfg.Status, lastStatus)
		case <-t.C:
		}
	}
}
