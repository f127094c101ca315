// Package telemetry provides the observability surface shared by the
// client and worker sides of the job manager.
//
// It covers:
//   - logging.go — structured logging through log/slog
//   - metrics.go — Prometheus counters and histograms
//
// Every binary in cmd/ uses the same log format; cmd/jobworker also
// exposes the metrics on /metrics.
package telemetry
