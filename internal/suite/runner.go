// Package suite runs the meal_max smoke plan: a fixed, ordered list of HTTP
// calls, each gated on a JSON marker, aborting on the first failure.
package suite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/mealsmoke/internal/common"
	"github.com/loykin/mealsmoke/internal/mealapi"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// SuccessMessage is the last transcript line of a fully passing run.
const SuccessMessage = "All tests passed successfully!"

// Doer sends one call; *mealapi.Client implements it.
type Doer interface {
	Do(ctx context.Context, c mealapi.Call) (*mealapi.Response, error)
}

// Options control transcript output.
type Options struct {
	// EchoJSON pretty-prints every successful JSON body to Out.
	EchoJSON bool
	// Out receives the human transcript. Defaults to os.Stdout.
	Out io.Writer
	// BaseURL is recorded in the report only.
	BaseURL string
}

// Runner executes steps strictly in order, one request in flight at a time.
type Runner struct {
	client Doer
	steps  []Step
	opts   Options
	now    func() time.Time
}

// New creates a Runner for steps.
func New(client Doer, steps []Step, opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Runner{client: client, steps: steps, opts: opts, now: time.Now}
}

// Run executes the plan. The returned report is never nil; the error is a
// *StepError when a step failed.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{
		RunID:     uuid.NewString(),
		BaseURL:   r.opts.BaseURL,
		StartedAt: r.now().UTC(),
	}
	logger := common.GetLogger().WithComponent("suite").WithRun(rep.RunID)
	logger.Info("smoke run started", "steps", len(r.steps), "base_url", r.opts.BaseURL)

	for _, st := range r.steps {
		res, err := r.runStep(ctx, st)
		rep.Steps = append(rep.Steps, res)
		if err != nil {
			rep.FinishedAt = r.now().UTC()
			rep.FailedStep = st.Name
			logger.WithStep(st.Op, st.Name).Error("step failed, aborting run", "error", err)
			return rep, err
		}
	}

	rep.Passed = true
	rep.FinishedAt = r.now().UTC()
	r.println(SuccessMessage)
	logger.Info("smoke run passed", "steps", len(rep.Steps), "elapsed", rep.Duration())
	return rep, nil
}

func (r *Runner) runStep(ctx context.Context, st Step) (StepResult, error) {
	logger := common.GetLogger().WithComponent("suite").WithStep(st.Op, st.Name)
	res := StepResult{Op: st.Op, Name: st.Name, Method: st.Call.Method, Target: st.Call.Target()}

	r.println(st.Start)
	started := r.now()
	resp, err := r.client.Do(ctx, st.Call)
	res.Elapsed = r.now().Sub(started)
	if err != nil {
		return r.fail(st, res, err)
	}
	res.URL = resp.URL
	res.StatusCode = resp.StatusCode
	res.Body = resp.Body

	if err := st.Marker.Check(resp.Body); err != nil {
		logger.Debug("marker check failed", "status_code", resp.StatusCode, "body", string(resp.Body))
		return r.fail(st, res, err)
	}

	// After output is held back so a failing hook never follows the pass line.
	var extra bytes.Buffer
	if st.After != nil {
		if err := st.After(&extra, resp.Body); err != nil {
			return r.fail(st, res, err)
		}
	}

	r.println(st.Pass)
	if r.opts.EchoJSON && gjson.ValidBytes(resp.Body) {
		_, _ = r.opts.Out.Write(pretty.Pretty(resp.Body))
	}
	_, _ = r.opts.Out.Write(extra.Bytes())
	res.Passed = true
	logger.Info("step passed", "status_code", resp.StatusCode, "elapsed", res.Elapsed)
	return res, nil
}

func (r *Runner) fail(st Step, res StepResult, cause error) (StepResult, error) {
	r.println(st.Fail)
	res.Error = cause.Error()
	return res, &StepError{Op: st.Op, Step: st.Name, Diagnostic: st.Fail, Err: cause}
}

func (r *Runner) println(s string) {
	_, _ = fmt.Fprintln(r.opts.Out, s)
}
