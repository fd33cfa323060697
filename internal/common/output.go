package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOutput configures rotating log file output.
type FileOutput struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// LogOptions describes how the global logger should be built.
type LogOptions struct {
	Level         string
	Format        string // text, json, color
	Color         *bool
	MaskSensitive *bool
	File          FileOutput
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 7
)

// OpenLogWriter returns stderr, or a lumberjack rotating writer when a file
// path is configured. The returned closer is never nil.
func OpenLogWriter(f FileOutput) (io.Writer, io.Closer, error) {
	path := strings.TrimSpace(f.Path)
	if path == "" {
		return os.Stderr, io.NopCloser(nil), nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create log directory %q: %w", dir, err)
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(f.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: orDefault(f.MaxBackups, defaultMaxBackups),
		MaxAge:     orDefault(f.MaxAgeDays, defaultMaxAgeDays),
		Compress:   f.Compress,
	}
	return lj, lj, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Setup builds the logger described by opts, installs it as the default
// logger and applies the masking switch.
func Setup(opts LogOptions) (*Logger, io.Closer, error) {
	level, err := ParseLogLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	w, closer, err := OpenLogWriter(opts.File)
	if err != nil {
		return nil, nil, err
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	useColor := opts.Color != nil && *opts.Color

	var logger *Logger
	switch format {
	case "json":
		logger = NewJSONLogger(level, w)
	case "color", "colour":
		logger = NewColorLogger(level, w, useColor)
	case "text", "":
		if useColor {
			logger = NewColorLogger(level, w, true)
		} else {
			logger = NewTextLogger(level, w)
		}
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("invalid logging format: %s (valid: text, json, color)", opts.Format)
	}

	masking := true
	if opts.MaskSensitive != nil {
		masking = *opts.MaskSensitive
	}
	EnableMasking(masking)
	SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", format,
		"color", useColor,
		"mask_sensitive", masking,
		"file", opts.File.Path)
	return logger, closer, nil
}
