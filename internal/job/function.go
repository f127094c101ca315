package job

import (
	"context"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/identity"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/jobrunner"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/telemetry"
)

// RunFunc is the user-supplied body of a Function: it receives the
// job's args and returns a JSON-serializable result, or an error.
type RunFunc func(ctx context.Context, args map[string]any) (any, error)

// Function is a named, executable unit registered with the system.
// Its attributes are immutable once constructed; Name is the only
// value that must be globally unique across a deployment.
type Function struct {
	name           string
	run            RunFunc
	priority       broker.Priority
	retries        int
	lazyQueue      bool
	publishResults bool
}

// Option configures a Function at construction time.
type Option func(*Function)

// WithPriority sets the function's submission priority. Default:
// broker.PriorityNormal.
func WithPriority(p broker.Priority) Option {
	return func(f *Function) { f.priority = p }
}

// WithRetries sets the number of retries a failed attempt gets (total
// attempts = retries+1). Default: 0 (a single attempt, no retry).
func WithRetries(retries int) Option {
	return func(f *Function) { f.retries = retries }
}

// WithLazyQueue hints that the function's task queue should be
// declared lazy (favoring disk over memory for a large backlog).
// Default: false.
func WithLazyQueue(lazy bool) Option {
	return func(f *Function) { f.lazyQueue = lazy }
}

// WithPublishResults controls whether a worker running this function
// publishes a result envelope at all. Default: true. Functions whose
// callers never use RunRemotely can set this to false to skip declaring
// and publishing to a reply queue.
func WithPublishResults(publish bool) Option {
	return func(f *Function) { f.publishResults = publish }
}

// New constructs a Function named name, running run, with the given
// options applied over these defaults: priority normal, 0 retries, not
// lazy, results published.
func New(name string, run RunFunc, opts ...Option) *Function {
	f := &Function{
		name:           name,
		run:            run,
		priority:       broker.PriorityNormal,
		publishResults: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Function) Name() string                  { return f.name }
func (f *Function) Priority() broker.Priority      { return f.priority }
func (f *Function) Retries() int                   { return f.retries }
func (f *Function) LazyQueue() bool                { return f.lazyQueue }
func (f *Function) PublishResults() bool           { return f.publishResults }
func (f *Function) ExecutorSpec() broker.ExecutorSpec {
	return broker.ExecutorSpec{
		Run:            broker.ExecutorFunc(f.run),
		Retries:        f.retries,
		LazyQueue:      f.lazyQueue,
		PublishResults: f.publishResults,
	}
}

// RunLocally executes the function in the current process, under a
// retry loop of up to Retries()+1 attempts, logging each failed attempt
// and the total elapsed time. It mints a fresh path-safe job id for
// every call (§4.2) purely for log correlation — the id is never
// published anywhere for this execution mode.
func (f *Function) RunLocally(ctx context.Context, args map[string]any) (any, error) {
	jobID := identity.PathSafeJobID(f.name, args)
	logger := telemetry.WithFunction(telemetry.FromContext(ctx), f.name)
	return jobrunner.Run(ctx, logger, jobID, f.name, f.retries, broker.ExecutorFunc(f.run), args)
}

// RunRemotely publishes the job to cfg's broker and blocks until its
// result is delivered, per broker.Broker.RunJobSync.
func (f *Function) RunRemotely(ctx context.Context, cfg *Configuration, args map[string]any) (any, error) {
	b := cfg.Broker()
	if b == nil {
		return nil, ErrNoBroker
	}
	return b.RunJobSync(ctx, f.name, args, f.priority, f.retries)
}

// AddToQueue publishes the job to cfg's broker and returns its job id
// as soon as the broker accepts the message, without waiting for a
// result.
func (f *Function) AddToQueue(ctx context.Context, cfg *Configuration, args map[string]any) (string, error) {
	b := cfg.Broker()
	if b == nil {
		return "", ErrNoBroker
	}
	return b.RunJobAsync(ctx, f.name, args, f.priority, f.retries)
}

// StartWorker runs this function's worker loop against cfg's broker.
// It never returns under normal operation.
func (f *Function) StartWorker(ctx context.Context, cfg *Configuration) error {
	b := cfg.Broker()
	if b == nil {
		return ErrNoBroker
	}
	return b.StartWorker(ctx, f.name, f.ExecutorSpec())
}
