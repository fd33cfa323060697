package suite

import "fmt"

// UsageError is raised for invocation problems detected before any request is sent.
type UsageError struct {
	Arg string
	Msg string
}

func (e *UsageError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "Unknown parameter passed: " + e.Arg
}

// StepError aborts a run. Diagnostic is the transcript line printed for the
// failed step; Err is the underlying transport or marker error.
type StepError struct {
	Op         int
	Step       string
	Diagnostic string
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %s: %v", e.Op, e.Step, e.Diagnostic, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
