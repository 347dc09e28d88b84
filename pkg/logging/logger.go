// Package logging provides slog-backed structured logging with per-component loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

// CorrelationIDKey is the context key for correlation IDs
const CorrelationIDKey contextKey = "correlationID"

// Logger provides structured logging for a single component
type Logger struct {
	logger    *slog.Logger
	component string
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{
		logger:    slog.New(createHandler()),
		component: component,
	}
}

// createHandler creates an appropriate slog handler based on environment variables
func createHandler() slog.Handler {
	var output io.Writer = os.Stdout
	level := levelFromEnv()

	format := strings.ToUpper(os.Getenv("OVERCAST_LOG_FORMAT"))
	switch format {
	case "JSON":
		return slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	default:
		return slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	}
}

// levelFromEnv determines the slog level from environment
func levelFromEnv() slog.Level {
	// Reduce verbosity during tests
	if os.Getenv("OVERCAST_TEST_MODE") == "true" {
		return slog.LevelError
	}
	switch strings.ToUpper(os.Getenv("OVERCAST_LOG_LEVEL")) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", l.component)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...), "component", l.component)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", l.component)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", l.component)
}

// InfoMsg logs a simple info message
func (l *Logger) InfoMsg(msg string) {
	l.logger.Info(msg, "component", l.component)
}

// DebugMsg logs a simple debug message
func (l *Logger) DebugMsg(msg string) {
	l.logger.Debug(msg, "component", l.component)
}

// WarnMsg logs a simple warning message
func (l *Logger) WarnMsg(msg string) {
	l.logger.Warn(msg, "component", l.component)
}

// ErrorMsg logs a simple error message
func (l *Logger) ErrorMsg(msg string) {
	l.logger.Error(msg, "component", l.component)
}

// IsDebugEnabled returns true if debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

// WithContext returns a logger carrying the context's correlation ID, if any
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if corrID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return &Logger{
			logger:    l.logger.With("correlation_id", corrID),
			component: l.component,
		}
	}
	return l
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		logger:    l.logger.With(args...),
		component: l.component,
	}
}

// ResourceStepStart logs the start of a single resource step
func (l *Logger) ResourceStepStart(resourceType, resourceName string, current, total int) {
	l.logger.Info("Starting resource step",
		"component", l.component,
		"resource_type", resourceType,
		"resource_name", resourceName,
		"current", current,
		"total", total)
}

// ResourceStepSuccess logs a successful resource step
func (l *Logger) ResourceStepSuccess(resourceType, resourceName string) {
	l.logger.Info("Resource step successful",
		"component", l.component,
		"resource_type", resourceType,
		"resource_name", resourceName,
		"status", "success")
}

// ResourceStepFailed logs a failed resource step
func (l *Logger) ResourceStepFailed(resourceType, resourceName string, err error) {
	l.logger.Error("Resource step failed",
		"component", l.component,
		"resource_type", resourceType,
		"resource_name", resourceName,
		"status", "failed",
		"error", err)
}

// OperationSummary logs the outcome of an operation
func (l *Logger) OperationSummary(operationID, operationType, status string, completed, total int) {
	if completed == total {
		l.logger.Info("Operation finished",
			"component", l.component,
			"operation_id", operationID,
			"operation_type", operationType,
			"status", status,
			"completed_steps", completed,
			"total_steps", total)
		return
	}
	l.logger.Warn("Operation finished with incomplete steps",
		"component", l.component,
		"operation_id", operationID,
		"operation_type", operationType,
		"status", status,
		"completed_steps", completed,
		"total_steps", total)
}
