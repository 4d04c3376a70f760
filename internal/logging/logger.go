// Package logging defines a minimal structured-logging interface used across
// the project. Implementations wrap log/slog and go.uber.org/zap.
package logging

import "context"

// Logger is a context-aware, structured logger. Implementations append the
// request id stored by WithRequestID and the trace and span ids of the active
// span found in ctx.
//
// The variadic args are key-value pairs:
//
//	logger.Info(ctx, "user.registered", "user_id", u.ID, "email", u.Email)
type Logger interface {
	// Debug logs diagnostic detail that is off in production.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}
