package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/identity"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/mqtransport"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/resultcache"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/telemetry"
)

// connPool is the subset of *mqtransport.Pool the broker needs.
// Depending on this interface rather than the concrete type lets tests
// hand the broker a preset connection without dialing a real one.
type connPool interface {
	Get(ctx context.Context, cfg mqtransport.ConnConfig) (*mqtransport.Conn, error)
	CloseAll() error
}

// Broker is the AMQP 0-9-1 / Celery-wire implementation of
// broker.Broker. It satisfies the interface entirely in terms of
// internal/mqtransport (connections, topology) and internal/resultcache
// (the out-of-order result cache for runJobSync).
type Broker struct {
	pool    connPool
	connCfg mqtransport.ConnConfig
	metrics *telemetry.Metrics
	logger  *slog.Logger

	maxCacheEntries int
	maxCacheBytes   int

	mu     sync.Mutex
	conn   *mqtransport.Conn
	caches map[string]*resultcache.Cache // function name -> result cache
	rpcs   map[string]*replyConsumer     // function name -> shared reply-queue consumer
}

// Options configures optional behavior of New.
type Options struct {
	Metrics         *telemetry.Metrics
	Logger          *slog.Logger
	MaxCacheEntries int
	MaxCacheBytes   int
}

// New builds a Broker against the given connection config, using pool
// to acquire connections. opts may be the zero value.
func New(pool *mqtransport.Pool, connCfg mqtransport.ConnConfig, opts Options) *Broker {
	return newBroker(pool, connCfg, opts)
}

func newBroker(pool connPool, connCfg mqtransport.ConnConfig, opts Options) *Broker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		pool:            pool,
		connCfg:         connCfg,
		metrics:         opts.Metrics,
		logger:          logger,
		maxCacheEntries: opts.MaxCacheEntries,
		maxCacheBytes:   opts.MaxCacheBytes,
		caches:          make(map[string]*resultcache.Cache),
		rpcs:            make(map[string]*replyConsumer),
	}
}

var _ broker.Broker = (*Broker)(nil)

// getConn acquires the pooled connection for this broker's config. A
// pool miss (including one caused by a fork observing a new pid) hands
// back a different *mqtransport.Conn pointer, which resets every
// per-function result cache, matching §4.4's "on any pool miss, also
// reset ... the result-cache map."
func (b *Broker) getConn(ctx context.Context) (*mqtransport.Conn, error) {
	conn, err := b.pool.Get(ctx, b.connCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	b.mu.Lock()
	reset := b.conn != conn
	if reset {
		b.conn = conn
		b.caches = make(map[string]*resultcache.Cache)
		b.rpcs = make(map[string]*replyConsumer)
	}
	b.mu.Unlock()

	if reset {
		b.refreshCacheSizeMetric()
	}

	return conn, nil
}

func (b *Broker) cacheFor(functionName string) *resultcache.Cache {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.caches[functionName]
	if !ok {
		c = resultcache.New(b.maxCacheEntries, b.maxCacheBytes, func(correlationID string) {
			b.logger.Warn("evicting unclaimed result from cache",
				"function", functionName, "correlation_id", correlationID)
			if b.metrics != nil {
				b.metrics.ResultCacheEvictions.Inc()
			}
		})
		b.caches[functionName] = c
	}
	return c
}

// refreshCacheSizeMetric recomputes the total number of entries held
// across every function's result cache and reports it. Called after
// every Put/Take so /metrics reflects the cache's actual occupancy
// rather than a gauge nothing ever touches.
func (b *Broker) refreshCacheSizeMetric() {
	if b.metrics == nil {
		return
	}

	b.mu.Lock()
	total := 0
	for _, c := range b.caches {
		total += c.Len()
	}
	b.mu.Unlock()

	b.metrics.ResultCacheSize.Set(float64(total))
}

// JobIDFromHandle normalizes a broker handle to a job id. For this
// broker a handle is always already the plain job id, but the
// normalization in internal/identity also accepts the Gearman-shaped
// handles other MediaCloud::JobManager brokers hand back, so a client
// written against the interface doesn't need to know which broker it
// is talking to.
func (b *Broker) JobIDFromHandle(handle string) (string, error) {
	id, err := identity.JobIDFromHandle(handle)
	if err != nil {
		return "", fmt.Errorf("%w: %v", broker.ErrProtocol, err)
	}
	return id, nil
}

// SetJobProgress is a consistent no-op: §4.4 leaves progress reporting
// undefined over AMQP (§9 Open Question b), and the contract requires
// failing or no-opping the same way every time rather than sometimes
// succeeding.
func (b *Broker) SetJobProgress(ctx context.Context, jobID string, num, denom int) error {
	b.logger.Debug("progress reporting not supported by this broker", "job_id", jobID, "num", num, "denom", denom)
	return nil
}

func notImplemented(op string) error {
	return fmt.Errorf("%w: %s", broker.ErrNotImplemented, op)
}

func (b *Broker) JobStatus(ctx context.Context, jobID string) (broker.JobStatusInfo, error) {
	return broker.JobStatusInfo{}, notImplemented("jobStatus")
}

func (b *Broker) ShowJobs(ctx context.Context) ([]broker.JobStatusInfo, error) {
	return nil, notImplemented("showJobs")
}

func (b *Broker) CancelJob(ctx context.Context, jobID string) error {
	return notImplemented("cancelJob")
}

func (b *Broker) ServerStatus(ctx context.Context) (broker.ServerStatusInfo, error) {
	return broker.ServerStatusInfo{}, notImplemented("serverStatus")
}

func (b *Broker) Workers(ctx context.Context) ([]broker.WorkerInfo, error) {
	return nil, notImplemented("workers")
}

// Close tears down every reply queue this broker has declared and
// closes its pooled connections. Per §9 Open Question (c), a later
// call that races a concurrent redeclare of the same reply queue is
// tolerated by ReplyQueueName minting a fresh UUID on its next use.
func (b *Broker) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn != nil {
		ch, err := conn.Channel()
		if err == nil {
			for _, functionName := range conn.ReplyQueueFunctions() {
				name, ok := conn.ReplyQueueNameIfExists(functionName)
				if !ok {
					continue
				}
				if err := mqtransport.DeleteReplyQueue(ch, name); err != nil {
					b.logger.Warn("failed to delete reply queue on close", "function", functionName, "error", err)
				}
				conn.ForgetReplyQueue(functionName)
			}
		}
	}

	return b.pool.CloseAll()
}
