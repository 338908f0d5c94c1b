package events

import (
	"context"
	"os"
)

type contextKey int

const (
	loggerKey contextKey = iota
	scanIDKey
	operationIDKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	// Return default logger
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithScanID adds a scan ID to context.
func WithScanID(ctx context.Context, id string) context.Context {
	logger := FromContext(ctx).WithField("scan_id", id)
	ctx = context.WithValue(ctx, scanIDKey, id)
	return WithLogger(ctx, logger)
}

// WithOperationID adds an export operation ID to context.
func WithOperationID(ctx context.Context, id string) context.Context {
	logger := FromContext(ctx).WithField("operation_id", id)
	ctx = context.WithValue(ctx, operationIDKey, id)
	return WithLogger(ctx, logger)
}

// GetScanID retrieves the scan ID from context.
func GetScanID(ctx context.Context) string {
	if id, ok := ctx.Value(scanIDKey).(string); ok {
		return id
	}
	return ""
}

// GetOperationID retrieves the operation ID from context.
func GetOperationID(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDKey).(string); ok {
		return id
	}
	return ""
}

var defaultLogger = &Logger{
	level:  InfoLevel,
	format: "text",
	output: os.Stderr,
	fields: make(map[string]interface{}),
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
