package broker

import "context"

// Priority is one of low, normal, or high. It maps to the AMQP integer
// priorities 0, 1, 2 used by the RabbitMQ broker's x-max-priority
// queues.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// AMQPValue returns the wire priority (0, 1, or 2) for p. Unrecognized
// values map to PriorityNormal's 1, matching "default 0 if absent"
// being the exception rather than the rule — absence is handled by
// callers, not by this mapping.
func (p Priority) AMQPValue() uint8 {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	default:
		return 1
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// ExecutorFunc runs a single attempt of a function body against args
// and returns its JSON-serializable result.
type ExecutorFunc func(ctx context.Context, args map[string]any) (any, error)

// ExecutorSpec is everything a Broker needs to run a worker loop for
// one function, without needing to know about internal/job's
// descriptor type (which in turn holds a Broker handle — ExecutorSpec
// exists to avoid that import cycle).
type ExecutorSpec struct {
	// Run executes one attempt of the function body.
	Run ExecutorFunc

	// Retries is the function's configured retry count; total attempts
	// made by the local runner is Retries+1.
	Retries int

	// LazyQueue hints that the function's task queue should be declared
	// with RabbitMQ's lazy queue mode, favoring disk over memory for a
	// large backlog.
	LazyQueue bool

	// PublishResults controls whether a worker running this function
	// publishes a result envelope at all. A function with this false is
	// only ever invoked via RunJobAsync/addToQueue; nothing ever calls
	// RunJobSync for it, so there is nothing to declare a reply queue or
	// publish a result to.
	PublishResults bool
}

// JobStatusInfo is the (currently unpopulated, see Broker.JobStatus)
// shape an admin surface would report for a single job.
type JobStatusInfo struct {
	JobID   string
	State   string
	Details map[string]any
}

// ServerStatusInfo is the (currently unpopulated) shape an admin
// surface would report for broker-wide health.
type ServerStatusInfo struct {
	Healthy bool
	Details map[string]any
}

// WorkerInfo is the (currently unpopulated) shape an admin surface
// would report for one connected worker.
type WorkerInfo struct {
	ID       string
	Function string
}

// Broker is the capability contract every broker implementation
// satisfies. All blocking methods take a context so callers can impose
// their own timeout; the spec's "no timeout, blocks indefinitely" is
// simply what happens when ctx carries no deadline.
type Broker interface {
	// StartWorker never returns under normal operation: it consumes
	// tasks for functionName and executes them via spec until ctx is
	// canceled or a transport/protocol error occurs.
	StartWorker(ctx context.Context, functionName string, spec ExecutorSpec) error

	// RunJobAsync publishes a job and returns as soon as the broker has
	// accepted the message, without waiting for a result.
	RunJobAsync(ctx context.Context, functionName string, args map[string]any, priority Priority, retries int) (jobID string, err error)

	// RunJobSync publishes a job and blocks until its result is
	// delivered, returning the result on success or an error wrapping
	// ErrJobFailed on a FAILURE result envelope.
	RunJobSync(ctx context.Context, functionName string, args map[string]any, priority Priority, retries int) (result any, err error)

	// JobIDFromHandle normalizes a broker-specific handle to a stable
	// job id.
	JobIDFromHandle(handle string) (string, error)

	// SetJobProgress reports num/denom progress for jobID. Brokers that
	// do not support progress reporting no-op consistently rather than
	// sometimes succeeding and sometimes failing.
	SetJobProgress(ctx context.Context, jobID string, num, denom int) error

	// JobStatus, ShowJobs, CancelJob, ServerStatus, and Workers form the
	// admin surface. The RabbitMQ broker returns an error wrapping
	// ErrNotImplemented for all five.
	JobStatus(ctx context.Context, jobID string) (JobStatusInfo, error)
	ShowJobs(ctx context.Context) ([]JobStatusInfo, error)
	CancelJob(ctx context.Context, jobID string) error
	ServerStatus(ctx context.Context) (ServerStatusInfo, error)
	Workers(ctx context.Context) ([]WorkerInfo, error)

	// Close releases broker-held resources (connections, transient
	// reply queues).
	Close() error
}
