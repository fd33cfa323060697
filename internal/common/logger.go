package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel maps a config string to a LogLevel. Empty means warn so that
// structured logs stay out of the way of the smoke transcript.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning", "":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return LogLevelWarn, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", s)
	}
}

// Logger provides a centralized logging interface for mealsmoke
type Logger struct {
	*slog.Logger
	level LogLevel
}

// NewLogger creates a text logger writing to stderr.
func NewLogger(level LogLevel) *Logger {
	return NewTextLogger(level, os.Stderr)
}

// NewTextLogger creates a structured text logger on w.
func NewTextLogger(level LogLevel, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: level.ToSlogLevel(),
	}
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, opts)),
		level:  level,
	}
}

// NewJSONLogger creates a structured logger with JSON output on w.
func NewJSONLogger(level LogLevel, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: level.ToSlogLevel(),
	}
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, opts)),
		level:  level,
	}
}

// NewColorLogger creates a logger backed by ColorHandler. Colors are
// forced on when force is true, otherwise auto-detected from w.
func NewColorLogger(level LogLevel, w io.Writer, force bool) *Logger {
	h := NewColorHandler(w, &slog.HandlerOptions{Level: level.ToSlogLevel()})
	h.SetMasker(GetGlobalMasker())
	if force {
		h.SetColorEnabled(true)
	}
	return &Logger{
		Logger: slog.New(h),
		level:  level,
	}
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		level:  l.level,
	}
}

// WithStep returns a logger with smoke step context
func (l *Logger) WithStep(op int, name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("op", op, "step", name),
		level:  l.level,
	}
}

// WithRun returns a logger tagged with the run id
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", runID),
		level:  l.level,
	}
}

// WithAuth returns a logger with authentication context
func (l *Logger) WithAuth(authType string) *Logger {
	return &Logger{
		Logger: l.Logger.With("auth", authType),
		level:  l.level,
	}
}

// WithStore returns a logger with store context
func (l *Logger) WithStore(storeType string) *Logger {
	return &Logger{
		Logger: l.Logger.With("store", storeType),
		level:  l.level,
	}
}

// WithRequest returns a logger with HTTP request context
func (l *Logger) WithRequest(method, url string) *Logger {
	return &Logger{
		Logger: l.Logger.With("method", method, "url", MaskSensitiveData(url)),
		level:  l.level,
	}
}

var (
	loggerMu      sync.RWMutex
	defaultLogger = NewLogger(LogLevelWarn)
)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	if logger == nil {
		return
	}
	loggerMu.Lock()
	defaultLogger = logger
	loggerMu.Unlock()
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// LogError logs an error with context
func LogError(msg string, err error, attrs ...any) {
	args := append([]any{"error", err}, attrs...)
	GetLogger().Error(msg, args...)
}

// LogInfo logs informational message
func LogInfo(msg string, attrs ...any) {
	GetLogger().Info(msg, attrs...)
}

// LogDebug logs debug message
func LogDebug(msg string, attrs ...any) {
	GetLogger().Debug(msg, attrs...)
}

// LogWarn logs warning message
func LogWarn(msg string, attrs ...any) {
	GetLogger().Warn(msg, attrs...)
}
