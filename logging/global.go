// Package logging wraps log/slog for the dispensing API: a console handler,
// a JSON handler over weekly rotating files, package-level helpers and an
// HTTP request logging middleware.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/giygas/dispensacao-api/config"
)

// Options configures InitLogger
type Options struct {
	LogDir         string
	RetentionWeeks int
	MaxFileSize    int64
	Env            config.Environment
	Level          string
	Verbose        bool      // Console output in test environments
	Console        io.Writer // Defaults to os.Stderr
}

// LoggingService owns the process logger and its rotating file
type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

// Close flushes and closes the log file, if any
func (s *LoggingService) Close() error {
	if s == nil || s.rotating == nil {
		return nil
	}
	return s.rotating.Close()
}

var (
	DefaultLoggingService *LoggingService

	fallbackOnce   sync.Once
	fallbackLogger *slog.Logger
)

// InitLogger initializes the global logger with 4 weeks retention
func InitLogger(logDir string) *LoggingService {
	return InitLoggerWithOptions(Options{LogDir: logDir, RetentionWeeks: 4, MaxFileSize: defaultMaxFileSize})
}

// InitLoggerWithRetentionAndSize initializes the global logger with explicit file limits
func InitLoggerWithRetentionAndSize(logDir string, retentionWeeks int, maxFileSize int64) *LoggingService {
	return InitLoggerWithOptions(Options{LogDir: logDir, RetentionWeeks: retentionWeeks, MaxFileSize: maxFileSize})
}

// InitLoggerWithOptions builds the console + file logger and installs it as
// the slog default. When the log directory cannot be used the service logs to
// the console only.
func InitLoggerWithOptions(opts Options) *LoggingService {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Env == "" {
		opts.Env = config.EnvDevelopment
	}

	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	service := &LoggingService{}

	if opts.LogDir == "" {
		service.Logger = slog.New(consoleHandler)
	} else {
		rotating := NewRotatingLoggerWithSizeLimit(opts.LogDir, opts.RetentionWeeks, opts.MaxFileSize)
		if err := rotating.open(); err != nil {
			service.Logger = slog.New(consoleHandler)
			service.Logger.Error("Failed to initialize rotating logger, logging to console only", "error", err)
		} else {
			rotating.startCleanup()
			fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: GetFileLogLevel()})
			service.Logger = slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}})
			service.rotating = rotating
		}
	}

	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
	return service
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, info when unknown
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// GetConsoleLogLevel picks the console level. An explicit LOG_LEVEL wins,
// except in tests which stay quiet unless verbose.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// GetFileLogLevel returns the level of the JSON file handler
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	fallbackOnce.Do(func() {
		fallbackLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	})
	return fallbackLogger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}
