// Package logging provides structured logging for archat on top of log/slog,
// with per-component loggers and redaction of credentials.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogLevel represents the severity of log messages
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger provides structured logging with component context
type Logger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	closer    io.Closer
}

// Config represents logging configuration
type Config struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    string // "stdout", "stderr", "discard", or file path
	Component string
}

// DefaultConfig returns the configuration used by one-shot commands
func DefaultConfig() Config {
	return Config{
		Level:     InfoLevel,
		Format:    "text",
		Output:    "stderr",
		Component: "archat",
	}
}

// DefaultLogFile returns the log file used while the full-screen interface owns the terminal
func DefaultLogFile() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "archat", "archat.log"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "state", "archat", "archat.log"), nil
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	var output io.Writer
	var closer io.Closer

	switch config.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	case "discard":
		output = io.Discard
	default:
		if err := os.MkdirAll(filepath.Dir(config.Output), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory for %s: %w", config.Output, err)
		}
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.Output, err)
		}
		output = file
		closer = file
	}

	return newLogger(output, closer, config), nil
}

// NewWriterLogger creates a logger writing to w, mostly useful in tests
func NewWriterLogger(w io.Writer, config Config) *Logger {
	return newLogger(w, nil, config)
}

func newLogger(output io.Writer, closer io.Closer, config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:       slogLevel(config.Level),
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	switch config.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		logger:    slog.New(handler),
		level:     config.Level,
		component: config.Component,
		closer:    closer,
	}
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	if key == "token" || key == "authorization" || strings.Contains(key, "password") {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

// slogLevel converts our LogLevel to slog.Level
func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// WithComponent creates a new logger for a specific component
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger:    l.logger.With(slog.String("component", component)),
		level:     l.level,
		component: component,
	}
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger:    l.logger.With(slog.Any(key, value)),
		level:     l.level,
		component: l.component,
	}
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		logger:    l.logger.With(args...),
		level:     l.level,
		component: l.component,
	}
}

// Component returns the component name attached to this logger
func (l *Logger) Component() string {
	return l.component
}

// Debug logs a debug level message
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DebugLevel {
		l.logger.Debug(msg, args...)
	}
}

// Info logs an info level message
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= InfoLevel {
		l.logger.Info(msg, args...)
	}
}

// Warn logs a warning level message
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WarnLevel {
		l.logger.Warn(msg, args...)
	}
}

// Error logs an error level message
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.level <= ErrorLevel {
		l.logger.Error(msg, args...)
	}
}

// LogOperation logs the start and end of an operation with duration
func (l *Logger) LogOperation(operation string, fn func() error) error {
	start := time.Now()
	opLogger := l.WithField("operation", operation)

	opLogger.Debug("Operation starting")

	err := fn()
	duration := time.Since(start)

	if err != nil {
		opLogger.Error("Operation failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return err
	}

	opLogger.Debug("Operation completed",
		slog.Duration("duration", duration))
	return nil
}

// LogHTTPRequest logs HTTP request details (without bodies)
func (l *Logger) LogHTTPRequest(method string, url string, statusCode int, duration time.Duration) {
	l.Debug("HTTP request completed",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", duration))
}

// LogSessionStart logs the outcome of a start handshake
func (l *Logger) LogSessionStart(url string, sessionID string, err error) {
	if err != nil {
		l.Error("Session start failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return
	}
	l.Info("Session started",
		slog.String("url", url),
		slog.String("session_id", sessionID))
}

// LogSessionRotated logs a server-initiated session id change
func (l *Logger) LogSessionRotated(previous, current string) {
	l.Info("Session id rotated",
		slog.String("previous", previous),
		slog.String("current", current))
}

// LogConfigLoad logs configuration loading operations
func (l *Logger) LogConfigLoad(configPath string, profileName string) {
	l.Debug("Loading configuration",
		slog.String("config_path", configPath),
		slog.String("profile", profileName))
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger with the specified configuration
func InitGlobalLogger(config Config) error {
	logger, err := NewLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize global logger: %w", err)
	}
	globalLogger = logger
	return nil
}

// SetGlobalLogger replaces the global logger
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger, _ = NewLogger(DefaultConfig())
	}
	return globalLogger
}

// Component-specific logger creators
func GetProtocolLogger() *Logger {
	return GetGlobalLogger().WithComponent("protocol")
}

func GetSessionLogger() *Logger {
	return GetGlobalLogger().WithComponent("session")
}

func GetTranscriptLogger() *Logger {
	return GetGlobalLogger().WithComponent("transcript")
}

func GetConfigLogger() *Logger {
	return GetGlobalLogger().WithComponent("config")
}

func GetUILogger() *Logger {
	return GetGlobalLogger().WithComponent("ui")
}
