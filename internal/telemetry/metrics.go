package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments the broker updates as jobs
// move through the system. The job counters and the RPC histogram are
// labeled by function name so a single process serving several
// functions still yields per-function breakdowns; the two result-cache
// instruments are process-wide and unlabeled.
type Metrics struct {
	JobsPublished        *prometheus.CounterVec
	JobsConsumed         *prometheus.CounterVec
	JobsSucceeded        *prometheus.CounterVec
	JobsFailed           *prometheus.CounterVec
	RPCDuration          *prometheus.HistogramVec
	ResultCacheEvictions prometheus.Counter
	ResultCacheSize      prometheus.Gauge
}

// NewMetrics builds a Metrics instance and registers every instrument
// against reg. Passing prometheus.NewRegistry() keeps tests isolated
// from the global default registry; cmd/jobworker passes
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmanager_jobs_published_total",
			Help: "Total number of jobs published to the task queue.",
		}, []string{"function"}),
		JobsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmanager_jobs_consumed_total",
			Help: "Total number of task messages a worker has taken off the queue.",
		}, []string{"function"}),
		JobsSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmanager_jobs_succeeded_total",
			Help: "Total number of jobs that completed with a SUCCESS result envelope.",
		}, []string{"function"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmanager_jobs_failed_total",
			Help: "Total number of jobs that completed with a FAILURE result envelope.",
		}, []string{"function"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobmanager_rpc_duration_seconds",
			Help:    "Time between publishing a job and receiving its matched result over runJobSync.",
			Buckets: prometheus.DefBuckets,
		}, []string{"function"}),
		ResultCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobmanager_result_cache_evictions_total",
			Help: "Total number of out-of-order result messages evicted from the cache before a waiter claimed them.",
		}),
		ResultCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobmanager_result_cache_entries",
			Help: "Current number of entries held across all functions' result caches.",
		}),
	}

	reg.MustRegister(
		m.JobsPublished,
		m.JobsConsumed,
		m.JobsSucceeded,
		m.JobsFailed,
		m.RPCDuration,
		m.ResultCacheEvictions,
		m.ResultCacheSize,
	)

	return m
}
