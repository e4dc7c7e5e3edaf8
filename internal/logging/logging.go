// Package logging wraps log/slog for the position log tools: text or JSON
// lines to the console, a size-rotated file, or both, with loggers scoped
// to a component, a file, or a single save/load operation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the slog handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config configures a Logger.
type Config struct {
	Level  Level
	Format Format

	// Output is "stdout", "stderr", "file" or "both" (stderr and file).
	Output string
	// Writer replaces the console stream when set.
	Writer io.Writer

	// FilePath, MaxSize (megabytes), MaxBackups and Compress apply when
	// Output includes the file.
	FilePath   string
	MaxSize    int64
	MaxBackups int
	Compress   bool

	AddSource bool
	// Component is attached to every line as "component".
	Component string
}

// DefaultConfig logs info and above as text on stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     "stderr",
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
		Component:  "meazure",
	}
}

// Logger is a slog.Logger that also owns its log file, if any. Loggers
// derived with the With* methods share the parent's file.
type Logger struct {
	*slog.Logger
	file *FileRotator
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the process logger, creating one from DefaultConfig on
// first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger == nil {
		l, err := New(DefaultConfig())
		if err != nil {
			l = &Logger{Logger: slog.Default()}
		}
		defaultLogger = l
	}
	return defaultLogger
}

// SetDefault installs l as the process logger and as slog's default.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l.Logger)
}

// New builds a logger from cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	w, file, err := destination(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup writers: %w", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if cfg.Component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", cfg.Component)})
	}

	return &Logger{Logger: slog.New(h), file: file}, nil
}

func destination(cfg *Config) (io.Writer, *FileRotator, error) {
	console := cfg.Writer
	output := strings.ToLower(cfg.Output)
	if console == nil {
		console = os.Stderr
		if output == "stdout" {
			console = os.Stdout
		}
	}

	if output != "file" && output != "both" {
		return console, nil, nil
	}
	file, err := NewFileRotator(cfg)
	if err != nil {
		return nil, nil, err
	}
	if output == "both" {
		return io.MultiWriter(console, file), file, nil
	}
	return file, file, nil
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), file: l.file}
}

// WithOperation tags lines with op=name and a fresh op_id, so every line of
// one save or load can be correlated.
func (l *Logger) WithOperation(name string) *Logger {
	return l.with(slog.String("op", name), slog.String("op_id", NewOperationID()))
}

// WithFile tags lines with the log file path.
func (l *Logger) WithFile(path string) *Logger {
	return l.with(slog.String("file", path))
}

// WithComponent tags lines with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(slog.String("component", name))
}

// Close waits for rotation housekeeping and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Sync flushes the log file.
func (l *Logger) Sync() error {
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

// ParseLevel accepts debug, info, warn (or warning) and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

// ParseFormat accepts "text" (or empty) and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format: %s", s)
}

// LevelString is the config spelling of level; unknown levels read as info.
func LevelString(level Level) string {
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}
