// Package logging configures slog handlers that write to rotating log files.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file names under the log directory, one per process role.
const (
	IndexingLog = "indexing.log"
	TrackingLog = "tracking.log"
	ShellLog    = "shell.log"
)

const (
	// DefaultMaxSize is the size in megabytes at which a log file is rotated.
	DefaultMaxSize = 1
	// DefaultMaxBackups is the number of rotated files kept.
	DefaultMaxBackups = 3
)

// Config describes where and how a process logs.
type Config struct {
	// Dir is created if missing.
	Dir string
	// File is the log file name inside Dir.
	File string
	// Level is the minimum level written.
	Level slog.Level
	// Console, when non-nil, receives a copy of every line.
	Console io.Writer

	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// ParseLevel maps debug, info, warn or error (any case) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

// Open creates a logger writing to a rotating file described by cfg.
// The returned closer closes the file.
func Open(cfg Config) (*slog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return nil, nil, fmt.Errorf("log file name required")
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.File),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var w io.Writer = file
	if cfg.Console != nil {
		w = io.MultiWriter(cfg.Console, file)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level}))
	return logger, file, nil
}

// Console creates a logger writing text lines to w.
func Console(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
