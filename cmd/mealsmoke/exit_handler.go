package main

import (
	"errors"
	"os"

	"github.com/loykin/mealsmoke"
	"github.com/loykin/mealsmoke/internal/common"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler implements ExitHandler for production use
type DefaultExitHandler struct {
	exit func(int)
}

// NewDefaultExitHandler creates a new default exit handler
func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{exit: os.Exit}
}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	h.exit(code)
}

// LogFatalError logs err and exits with status 1. Step failures were already
// reported in the transcript, so they are logged without the usage noise.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	logger := common.GetLogger().WithComponent("main")
	var stepErr *mealsmoke.StepError
	if errors.As(err, &stepErr) {
		keyvals = append([]any{"op", stepErr.Op, "step", stepErr.Step}, keyvals...)
		msg = "smoke run aborted"
	}
	allKeyvals := append([]any{"error", err}, keyvals...)
	logger.Error(msg, allKeyvals...)
	h.Exit(1)
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = NewDefaultExitHandler()
