package suite

import "time"

// StepResult records what happened to one step.
type StepResult struct {
	Op         int           `yaml:"op" json:"op"`
	Name       string        `yaml:"name" json:"name"`
	Method     string        `yaml:"method" json:"method"`
	Target     string        `yaml:"target" json:"target"`
	URL        string        `yaml:"url,omitempty" json:"url,omitempty"`
	StatusCode int           `yaml:"status_code,omitempty" json:"status_code,omitempty"`
	Body       []byte        `yaml:"-" json:"-"`
	Passed     bool          `yaml:"passed" json:"passed"`
	Error      string        `yaml:"error,omitempty" json:"error,omitempty"`
	Elapsed    time.Duration `yaml:"elapsed" json:"elapsed"`
}

// Report is the outcome of one smoke run.
type Report struct {
	RunID      string       `yaml:"run_id" json:"run_id"`
	BaseURL    string       `yaml:"base_url" json:"base_url"`
	StartedAt  time.Time    `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at" json:"finished_at"`
	Passed     bool         `yaml:"passed" json:"passed"`
	FailedStep string       `yaml:"failed_step,omitempty" json:"failed_step,omitempty"`
	Steps      []StepResult `yaml:"steps" json:"steps"`
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PassedCount returns how many steps passed.
func (r *Report) PassedCount() int {
	n := 0
	for _, s := range r.Steps {
		if s.Passed {
			n++
		}
	}
	return n
}
