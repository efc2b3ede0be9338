// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ActorIDKey is the context key for the acting user ID
	ActorIDKey contextKey = "actor_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger enriched with request-scoped values.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("requestId", requestID)
	}
	if actorID, ok := ctx.Value(ActorIDKey).(string); ok && actorID != "" {
		logger = logger.With("actorId", actorID)
	}

	return &Logger{Logger: logger}
}

// WithRequestID returns a logger with the request ID attached.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With("requestId", requestID)}
}

// HTTPRequest logs an HTTP request with timing.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http request",
		"method", method,
		"path", path,
		"status", status,
		"latencyMs", latencyMs,
		"clientIp", clientIP,
	)
}

// StateTransition logs a work order or payment record status change.
func (l *Logger) StateTransition(entity, id, from, to, actor string) {
	l.Info("state transition",
		"entity", entity,
		"id", id,
		"from", from,
		"to", to,
		"actor", actor,
	)
}

// DatabaseError logs a database operation failure.
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database error",
		"operation", operation,
		"error", err,
	)
}

// RateLimitExceeded logs a rate limit rejection.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate limit exceeded",
		"clientIp", clientIP,
		"path", path,
	)
}
