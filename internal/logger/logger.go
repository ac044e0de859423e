package logger

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level from a LOG_LEVEL value (debug, info, warn, error).
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		minLevel.Store(int32(LevelDebug))
	case "warn", "warning":
		minLevel.Store(int32(LevelWarn))
	case "error":
		minLevel.Store(int32(LevelError))
	default:
		minLevel.Store(int32(LevelInfo))
	}
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request ID for log lines.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID from a context, or "" if none was set.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for services
type Logger struct {
	requestID string
	projectID string
}

// NewLogger creates a logger with request context
func NewLogger(ctx context.Context) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{requestID: requestID}
}

// WithProject returns a copy of the logger tagged with a project ID.
func (l *Logger) WithProject(projectID string) *Logger {
	cp := *l
	cp.projectID = projectID
	return &cp
}

func (l *Logger) prefix(level, operation string) string {
	if l.projectID != "" {
		return "[" + level + "] request_id=" + l.requestID + " project_id=" + l.projectID + " operation=" + operation + " "
	}
	return "[" + level + "] request_id=" + l.requestID + " operation=" + operation + " "
}

func enabled(level Level) bool {
	return int32(level) >= minLevel.Load()
}

// LogDebugf logs a formatted debug message with context
func (l *Logger) LogDebugf(operation string, format string, args ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	log.Printf(l.prefix("debug", operation)+format, args...)
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	log.Printf("%serror=%v", l.prefix("error", operation), err)
}

// LogErrorf logs a formatted error with context
func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	log.Printf(l.prefix("error", operation)+format, args...)
}

// LogInfo logs an info message with context
func (l *Logger) LogInfo(operation string, message string) {
	if !enabled(LevelInfo) {
		return
	}
	log.Printf("%smessage=%s", l.prefix("info", operation), message)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	log.Printf(l.prefix("info", operation)+format, args...)
}

// LogWarn logs a warning with context
func (l *Logger) LogWarn(operation string, message string) {
	if !enabled(LevelWarn) {
		return
	}
	log.Printf("%smessage=%s", l.prefix("warn", operation), message)
}

// LogWarnf logs a formatted warning with context
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	log.Printf(l.prefix("warn", operation)+format, args...)
}
