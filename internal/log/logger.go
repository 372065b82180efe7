package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger provides centralized logging for the engine and its host
type Logger struct {
	logger *slog.Logger
	file   *os.File
}

var (
	globalLogger *Logger
	level        = new(slog.LevelVar)
)

// init creates the global logger with console output by default
func init() {
	level.Set(slog.LevelInfo)
	globalLogger = &Logger{
		logger: slog.New(newHandler(os.Stderr, "text")),
		file:   os.Stderr,
	}
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   slog.TimeKey,
					Value: slog.StringValue(a.Value.Time().Format("2006/01/02 15:04:05.000000")),
				}
			}
			return a
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetLevel changes the minimum level of the global logger.
// Accepts debug, info, warn or error.
func SetLevel(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info", "":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

// SetFileOutput configures the logger to write to the specified file
func SetFileOutput(filename, format string) error {
	logger, err := NewLogger(filename, format)
	if err != nil {
		return err
	}

	// Close existing file if it's not a standard stream
	if globalLogger != nil && globalLogger.file != os.Stdout && globalLogger.file != os.Stderr {
		globalLogger.file.Close()
	}

	globalLogger = logger
	return nil
}

// SetOutput redirects the global logger to w, e.g. io.Discard in tests.
func SetOutput(w io.Writer, format string) {
	globalLogger = &Logger{
		logger: slog.New(newHandler(w, format)),
		file:   os.Stderr,
	}
}

// NewLogger creates a new logger that writes to the specified file
func NewLogger(filename, format string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	return &Logger{
		logger: slog.New(newHandler(file, format)),
		file:   file,
	}, nil
}

// With returns a child logger carrying the given attributes, e.g. a component name.
func With(args ...any) *slog.Logger {
	return globalLogger.logger.With(args...)
}

// Standard logging methods
func Debug(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Error(msg, args...)
	}
}

// Close closes the log file
func Close() {
	if globalLogger != nil && globalLogger.file != os.Stdout && globalLogger.file != os.Stderr {
		globalLogger.file.Close()
	}
}
