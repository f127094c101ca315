package jobrunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
)

// Run executes fn against args, retrying up to retries+1 total
// attempts. The first successful attempt returns immediately; if every
// attempt fails, Run returns the last attempt's error. Each failed
// attempt is logged with the captured error, and the total elapsed
// wall-clock time is logged once the loop finishes either way.
func Run(ctx context.Context, logger *slog.Logger, jobID, functionName string, retries int, fn broker.ExecutorFunc, args map[string]any) (any, error) {
	if logger == nil {
		logger = slog.Default()
	}

	maxAttempts := retries + 1
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := fn(ctx, args)
		if err == nil {
			logger.Info("job succeeded",
				"job_id", jobID,
				"function", functionName,
				"attempt", attempt,
				"elapsed", time.Since(start),
			)
			return result, nil
		}

		lastErr = err
		logger.Warn("job attempt failed",
			"job_id", jobID,
			"function", functionName,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)
	}

	logger.Error("job failed after exhausting retries",
		"job_id", jobID,
		"function", functionName,
		"attempts", maxAttempts,
		"elapsed", time.Since(start),
		"error", lastErr,
	)

	return nil, fmt.Errorf("function %s: all %d attempts failed: %w", functionName, maxAttempts, lastErr)
}
