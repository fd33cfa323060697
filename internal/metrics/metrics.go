// Package metrics turns smoke reports into Prometheus metrics and optionally
// pushes them to a Pushgateway, since a smoke run is too short-lived to be scraped.
package metrics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loykin/mealsmoke/internal/common"
	"github.com/loykin/mealsmoke/internal/suite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "mealsmoke"

// DefaultJobName is the Pushgateway job when none is configured.
const DefaultJobName = "mealsmoke"

// Config controls the Pushgateway push. An empty URL disables pushing.
type Config struct {
	PushgatewayURL string        `mapstructure:"pushgateway_url"`
	JobName        string        `mapstructure:"job_name"`
	Instance       string        `mapstructure:"instance"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a push target is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.PushgatewayURL) != "" }

// Collector holds the metrics of one process.
type Collector struct {
	cfg      Config
	registry *prometheus.Registry
	instance string
	logger   *common.Logger

	stepDuration *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	runs         *prometheus.CounterVec
	lastRun      *prometheus.GaugeVec
	lastRunTime  prometheus.Gauge
}

// New registers the collector's metrics on a private registry.
func New(cfg Config) (*Collector, error) {
	if strings.TrimSpace(cfg.JobName) == "" {
		cfg.JobName = DefaultJobName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := common.GetLogger().WithComponent("metrics")

	instance := cfg.Instance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			logger.Warn("hostname unavailable for instance label", "error", err)
			host = "unknown"
		}
		instance = host
	}

	c := &Collector{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		instance: instance,
		logger:   logger,
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of a smoke step request in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"step", "status"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Smoke steps executed, by outcome",
		}, []string{"step", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Smoke runs executed, by outcome",
		}, []string{"status"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last smoke run passed, 0 otherwise",
		}, []string{"base_url"}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last smoke run finished",
		}),
	}
	for _, col := range []prometheus.Collector{c.stepDuration, c.steps, c.runs, c.lastRun, c.lastRunTime} {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return c, nil
}

func status(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

// Observe records every step of rep and the run outcome.
func (c *Collector) Observe(rep *suite.Report) {
	if rep == nil {
		return
	}
	for _, st := range rep.Steps {
		s := status(st.Passed)
		c.stepDuration.WithLabelValues(st.Name, s).Observe(st.Elapsed.Seconds())
		c.steps.WithLabelValues(st.Name, s).Inc()
	}
	c.runs.WithLabelValues(status(rep.Passed)).Inc()
	success := 0.0
	if rep.Passed {
		success = 1
	}
	c.lastRun.WithLabelValues(rep.BaseURL).Set(success)
	if !rep.FinishedAt.IsZero() {
		c.lastRunTime.Set(float64(rep.FinishedAt.Unix()))
	}
	c.logger.Debug("report observed", "run_id", rep.RunID, "steps", len(rep.Steps), "passed", rep.Passed)
}

// Push sends the registry to the Pushgateway. It is a no-op when disabled.
func (c *Collector) Push(ctx context.Context) error {
	if !c.cfg.Enabled() {
		return nil
	}
	pushCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimSpace(c.cfg.PushgatewayURL)
	err := push.New(url, c.cfg.JobName).
		Gatherer(c.registry).
		Grouping("instance", c.instance).
		PushContext(pushCtx)
	if err != nil {
		return fmt.Errorf("metrics: push to %s: %w", common.MaskSensitiveData(url), err)
	}
	c.logger.Info("metrics pushed", "job", c.cfg.JobName, "instance", c.instance)
	return nil
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
