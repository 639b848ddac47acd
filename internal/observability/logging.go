// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
	SpanID        LogContextKey = "span_id"
	TraceID       LogContextKey = "trace_id"
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id := ctx.Value(CorrelationID); id != nil {
		return id.(string)
	}
	return ""
}

// WorkflowLogger provides structured logging for workflow transitions.
type WorkflowLogger struct {
	logger *Logger
}

// NewWorkflowLogger creates a new WorkflowLogger.
func NewWorkflowLogger() *WorkflowLogger {
	return &WorkflowLogger{logger: GlobalLogger}
}

// LogTransition logs a committed workflow transition.
func (l *WorkflowLogger) LogTransition(ctx context.Context, action string, paperID uint, stageName string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("action", action),
		slog.Uint64("paper_id", uint64(paperID)),
		slog.String("stage", stageName),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "workflow transition", attrs...)
}

// LogInvariantViolation logs detected corrupted workflow state. These always
// indicate a prior bug, so they log at error level.
func (l *WorkflowLogger) LogInvariantViolation(ctx context.Context, paperID uint, detail string) {
	l.logger.ErrorContext(ctx, "workflow invariant violated",
		slog.Uint64("paper_id", uint64(paperID)),
		slog.String("detail", detail),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogNotificationError logs a failed, fire-and-forget notification publish.
func LogNotificationError(ctx context.Context, event string, err error) {
	GlobalLogger.WarnContext(ctx, "notification publish failed",
		slog.String("event", event),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}
