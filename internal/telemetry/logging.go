package telemetry

import (
	"context"
	"log/slog"
	"os"
)

// LogLevel reads the logging level from the environment.
// Accepted values: DEBUG, WARN, ERROR. Default: INFO.
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger builds and installs the process-wide default logger.
//
// LOG_FORMAT selects the handler:
//   - "json" (default) — structured JSON for production
//   - "text" — human-readable output for local development
func SetupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     LogLevel(),
		AddSource: LogLevel() == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

type ctxKey string

// CtxLogger is the context key under which a request/job-scoped logger
// is stored.
const CtxLogger ctxKey = "logger"

// WithLogger attaches a logger to ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext returns the logger attached to ctx, or the global default
// logger if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithJobID returns a logger with job_id added to every record.
func WithJobID(logger *slog.Logger, jobID string) *slog.Logger {
	return logger.With("job_id", jobID)
}

// WithFunction returns a logger with function added to every record.
func WithFunction(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("function", name)
}
