package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID, resourceID, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		// Adjust log level based on error type
		switch {
		case IsValidation(err), IsImportRejected(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsUnauthorized(err):
			level = slog.LevelWarn
			status = "unauthorized"
		case IsConflict(err):
			level = slog.LevelWarn
			status = "conflict"
		case IsNotFound(err):
			status = "not_found"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var bwe *BatchWriteError
		if errors.As(err, &bwe) {
			attrs = append(attrs, slog.Int("failed_batch", bwe.Batch), slog.Int("imported_before_failure", bwe.Imported))
		}
	}

	if ctx != nil {
		if requestID := utils.GetRequestIDFromContext(ctx); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
	} else {
		ctx = context.Background()
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) Debug(ctx context.Context, msg string, args ...any) {
	if l.config.EnableDebug {
		l.logger.DebugContext(ctx, msg, args...)
	}
}

func (l *ServiceLogger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *ServiceLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

// ContextualLogger wraps operations with automatic logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	userID    string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, userID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		userID:    userID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.userID, resourceID, resourceType, time.Since(cl.startTime), err)
}

// FormatError renders an error for structured responses and logs
func FormatError(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	result := map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}

	var ve ValidationErrors
	var bwe *BatchWriteError
	switch {
	case errors.As(err, &ve):
		result["type"] = "validation"
		result["count"] = len(ve)
	case errors.As(err, &bwe):
		result["type"] = "batch_write"
		result["batch"] = bwe.Batch
		result["imported"] = bwe.Imported
	case IsImportRejected(err):
		result["type"] = "rejected"
	case IsNotFound(err):
		result["type"] = "not_found"
	case IsUnauthorized(err):
		result["type"] = "unauthorized"
	case IsConflict(err):
		result["type"] = "conflict"
	case IsValidation(err):
		result["type"] = "validation"
	}

	return result
}
