// Package mealsmoke drives a running meal_max API through its smoke plan.
// It is the library form of the mealsmoke command.
package mealsmoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/loykin/mealsmoke/internal/auth"
	"github.com/loykin/mealsmoke/internal/common"
	"github.com/loykin/mealsmoke/internal/config"
	"github.com/loykin/mealsmoke/internal/mealapi"
	"github.com/loykin/mealsmoke/internal/metrics"
	"github.com/loykin/mealsmoke/internal/store"
	"github.com/loykin/mealsmoke/internal/suite"
	"github.com/loykin/mealsmoke/internal/wait"
)

// Re-export commonly used types for public API

// Config is the decoded configuration document.
type Config = config.Doc

// Report is the outcome of one smoke run.
type Report = suite.Report

// StepResult records one step of a Report.
type StepResult = suite.StepResult

// StepError is returned when a step fails and the run is aborted.
type StepError = suite.StepError

// UsageError is returned for invalid invocations and configuration.
type UsageError = suite.UsageError

// Step is one entry of the smoke plan.
type Step = suite.Step

// StoredRun is a run read back from the history store.
type StoredRun = store.Run

// StoredStep is one step of a StoredRun.
type StoredStep = store.StepRecord

// StoreConfig selects the history backend.
type StoreConfig = store.Config

// Supported history drivers.
const (
	DriverSqlite     = store.DriverSqlite
	DriverPostgresql = store.DriverPostgresql
)

// SuccessMessage is printed when every step passed.
const SuccessMessage = suite.SuccessMessage

// AuthMethod Plugin-style provider interface and registration
type AuthMethod = auth.Method

type AuthFactory = auth.Factory

// RegisterAuthProvider exposes custom auth provider registration for library users.
func RegisterAuthProvider(typ string, f AuthFactory) { auth.Register(typ, f) }

// LoadConfig reads path (or the default path when empty) and applies
// MEALSMOKE_* environment overrides. The document is validated.
func LoadConfig(path string) (*Config, error) {
	v := config.New()
	explicit := path != ""
	if explicit {
		v.Set("config", path)
	}
	doc, err := config.Load(v, explicit)
	if err != nil {
		return nil, &UsageError{Msg: err.Error()}
	}
	if err := doc.Validate(); err != nil {
		return nil, &UsageError{Msg: err.Error()}
	}
	return doc, nil
}

// Steps returns the plan that Run would execute for doc.
func Steps(doc *Config) []Step { return suite.Plan(doc.Fixtures) }

// Run executes the smoke plan described by doc and writes the transcript to
// out (stdout when nil). The report is nil only when the run never started;
// otherwise it is returned together with a *StepError on failure. History
// and metrics problems are logged and never change the outcome.
func Run(ctx context.Context, doc *Config, out io.Writer) (*Report, error) {
	if doc == nil {
		return nil, &UsageError{Msg: "mealsmoke: nil config"}
	}
	if err := doc.Validate(); err != nil {
		return nil, &UsageError{Msg: err.Error()}
	}
	if out == nil {
		out = os.Stdout
	}
	logger := common.GetLogger().WithComponent("mealsmoke")

	rc := doc.HTTPClient().New()
	if doc.Auth.Enabled() {
		cred, err := auth.Acquire(auth.WithHTTPClient(ctx, rc.GetClient()), doc.Auth)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Authentication failed: %s\n", common.MaskSensitiveData(err.Error()))
			return nil, err
		}
		rc.SetHeader(cred.Header, cred.Value)
	}
	if err := wait.For(ctx, rc, doc.Wait); err != nil {
		_, _ = fmt.Fprintf(out, "Service did not become ready: %s\n", common.MaskSensitiveData(err.Error()))
		return nil, err
	}

	runner := suite.New(mealapi.New(rc), Steps(doc), suite.Options{
		EchoJSON: doc.EchoJSON,
		Out:      out,
		BaseURL:  doc.BaseURL,
	})
	rep, runErr := runner.Run(ctx)

	if err := record(ctx, doc.Store, rep); err != nil {
		logger.Warn("failed to record run history", "run_id", rep.RunID, "error", err)
	}
	if err := publish(ctx, doc.Metrics, rep); err != nil {
		logger.Warn("failed to publish metrics", "run_id", rep.RunID, "error", err)
	}
	return rep, runErr
}

func record(ctx context.Context, cfg store.Config, rep *Report) error {
	if !cfg.Enabled() {
		return nil
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	return errors.Join(st.RecordRun(ctx, rep), st.Close())
}

func publish(ctx context.Context, cfg metrics.Config, rep *Report) error {
	if !cfg.Enabled() {
		return nil
	}
	c, err := metrics.New(cfg)
	if err != nil {
		return err
	}
	c.Observe(rep)
	return c.Push(ctx)
}

// History lists stored runs, most recent first. limit <= 0 means all.
func History(ctx context.Context, cfg StoreConfig, limit int) ([]StoredRun, error) {
	if !cfg.Enabled() {
		return nil, &UsageError{Msg: "history: store.type is not configured"}
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	return st.ListRuns(ctx, limit)
}

// HistorySteps returns the stored steps of one run in execution order.
func HistorySteps(ctx context.Context, cfg StoreConfig, runID string) ([]StoredStep, error) {
	if !cfg.Enabled() {
		return nil, &UsageError{Msg: "history: store.type is not configured"}
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	return st.Steps(ctx, runID)
}
