// Package logging sets up the service's slog logger: text on the console and
// JSON on weekly rotating files.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Options configure Init
type Options struct {
	Dir            string // empty disables file logging
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Console        io.Writer // defaults to os.Stdout
}

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService

	fallbackOnce sync.Once
	fallback     *slog.Logger
)

// Init builds the global logger and installs it as slog's default. When the
// log directory cannot be used the service keeps logging to the console.
func Init(opts Options) error {
	level := parseLogLevel(opts.Level)

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}),
	}

	var file *RotatingLogger
	var openErr error
	if opts.Dir != "" {
		file = NewRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if openErr = file.Open(); openErr != nil {
			file = nil
		} else {
			handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		}
	}

	_ = Close()
	DefaultLoggingService = &LoggingService{
		Logger: slog.New(newFanoutHandler(handlers...)),
		file:   file,
	}
	slog.SetDefault(DefaultLoggingService.Logger)

	if openErr != nil {
		Warn("File logging disabled", "dir", opts.Dir, "error", openErr)
	}
	return openErr
}

// Close flushes and closes the log file of the global logger
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	err := DefaultLoggingService.file.Close()
	DefaultLoggingService.file = nil
	return err
}

// Logger returns the global logger, or a console logger when Init was not called
func Logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	fallbackOnce.Do(func() {
		fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	})
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
