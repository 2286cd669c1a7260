package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns ctx carrying logger
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context, falling back to the default logger
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Middleware adds a logger to the request context. When extractRequestID is
// set, the request ID becomes a field of every record logged for the request.
func Middleware(logger *Logger, extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if extractRequestID != nil {
				if id := extractRequestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger provides domain-aware logging helpers
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogRecordWrite logs a successful write against the record store
func (sl *StructuredLogger) LogRecordWrite(ctx context.Context, op, account, kind, id string) {
	fields := NewFields().
		WithRecord(account, kind, id).
		WithOperation(op)
	sl.logger.DebugContext(ctx, "Record written", fields.ToSlice()...)
}

// LogRollover logs an applied period rollover
func (sl *StructuredLogger) LogRollover(ctx context.Context, account, from, to string, cleared int) {
	sl.logger.InfoContext(ctx, "Period rolled over",
		FieldAccount, account,
		FieldOperation, OpRollover,
		"from_period", from,
		FieldPeriod, to,
		"records_cleared", cleared)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errType, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithErrorType(errType).WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
