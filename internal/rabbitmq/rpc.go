package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/resultcache"
)

// replyConsumer owns the single running Consume loop against one
// function's reply queue. Every concurrent RunJobSync call for that
// function in this process shares it, rather than each opening its own
// consumer on the queue — with more than one consumer on a shared
// reply queue, RabbitMQ round-robins deliveries across them and a
// caller could be starved of its own result forever. Deliveries that
// don't match a currently-registered waiter fall through to the result
// cache (§4.4 step 2), exactly as if that waiter had consumed and
// cached them itself.
type replyConsumer struct {
	mu      sync.Mutex
	waiters map[string]chan []byte
	started bool
}

func newReplyConsumer() *replyConsumer {
	return &replyConsumer{waiters: make(map[string]chan []byte)}
}

// wait registers jobID as awaited and returns a channel that receives
// its result body once, or is closed without a body by failAll if the
// consumer loop stops. A caller that gives up waiting (e.g. its ctx is
// canceled) calls cancelWait, so the consumer loop caches a later
// delivery instead of sending to an abandoned channel.
func (rc *replyConsumer) wait(jobID string) chan []byte {
	ch := make(chan []byte, 1)
	rc.mu.Lock()
	rc.waiters[jobID] = ch
	rc.mu.Unlock()
	return ch
}

func (rc *replyConsumer) cancelWait(jobID string) {
	rc.mu.Lock()
	delete(rc.waiters, jobID)
	rc.mu.Unlock()
}

// deliver routes one reply-queue message: to its waiter if one is
// registered, or into cache otherwise.
func (rc *replyConsumer) deliver(correlationID string, body []byte, cache *resultcache.Cache) {
	rc.mu.Lock()
	ch, ok := rc.waiters[correlationID]
	if ok {
		delete(rc.waiters, correlationID)
	}
	rc.mu.Unlock()

	if ok {
		ch <- body
		return
	}
	cache.Put(correlationID, body)
}

// failAll aborts every currently registered waiter by closing its
// channel unfulfilled, used when the consumer loop itself dies.
func (rc *replyConsumer) failAll() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for id, ch := range rc.waiters {
		close(ch)
		delete(rc.waiters, id)
	}
}

func (b *Broker) replyConsumerFor(functionName string) *replyConsumer {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc, ok := b.rpcs[functionName]
	if !ok {
		rc = newReplyConsumer()
		b.rpcs[functionName] = rc
	}
	return rc
}

// RunJobSync implements §4.4 "Awaiting a result": publish, then probe
// the result cache before falling back to the shared reply-queue
// consumer, which matches by correlation id and caches results
// belonging to other still-outstanding jobs of the same function.
func (b *Broker) RunJobSync(ctx context.Context, functionName string, args map[string]any, priority broker.Priority, retries int) (any, error) {
	start := time.Now()

	jobID, err := b.RunJobAsync(ctx, functionName, args, priority, retries)
	if err != nil {
		return nil, err
	}

	body, err := b.awaitResult(ctx, functionName, jobID)
	if err != nil {
		return nil, err
	}

	if b.metrics != nil {
		b.metrics.RPCDuration.WithLabelValues(functionName).Observe(time.Since(start).Seconds())
	}

	var env resultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: unmarshal result envelope: %v", broker.ErrDecode, err)
	}
	if env.TaskID != jobID {
		return nil, fmt.Errorf("%w: result task_id %q does not match job id %q", broker.ErrProtocol, env.TaskID, jobID)
	}

	switch env.Status {
	case statusSuccess:
		if b.metrics != nil {
			b.metrics.JobsSucceeded.WithLabelValues(functionName).Inc()
		}
		return env.Result, nil
	case statusFailure:
		if b.metrics != nil {
			b.metrics.JobsFailed.WithLabelValues(functionName).Inc()
		}
		return nil, fmt.Errorf("%w: %s", broker.ErrJobFailed, env.Traceback)
	default:
		return nil, fmt.Errorf("%w: unknown result status %q", broker.ErrProtocol, env.Status)
	}
}

// awaitResult returns the raw result body matching jobID, either
// immediately from the result cache or by waiting on the shared reply
// consumer for this function.
func (b *Broker) awaitResult(ctx context.Context, functionName, jobID string) ([]byte, error) {
	cache := b.cacheFor(functionName)
	if body, ok := cache.Take(jobID); ok {
		b.refreshCacheSizeMetric()
		return body, nil
	}

	conn, err := b.getConn(ctx)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	replyTo, ok := conn.ReplyQueueNameIfExists(functionName)
	if !ok {
		return nil, fmt.Errorf("%w: no reply queue declared for function %s", broker.ErrProtocol, functionName)
	}

	rc := b.replyConsumerFor(functionName)

	b.mu.Lock()
	needsStart := !rc.started
	if needsStart {
		rc.started = true
	}
	b.mu.Unlock()

	if needsStart {
		deliveries, err := ch.Consume(replyTo, "", false, false, false, false, nil)
		if err != nil {
			b.mu.Lock()
			rc.started = false
			b.mu.Unlock()
			return nil, fmt.Errorf("%w: consume reply queue %s: %v", broker.ErrTransport, replyTo, err)
		}
		go b.runReplyConsumer(functionName, rc, deliveries)
	}

	waitCh := rc.wait(jobID)

	// The cache may have been populated between the first Take and rc
	// being registered as started, by a consumer that raced ahead of us
	// (e.g. another goroutine that started it first). Check once more
	// now that we're guaranteed the consumer is running.
	if body, ok := cache.Take(jobID); ok {
		rc.cancelWait(jobID)
		b.refreshCacheSizeMetric()
		return body, nil
	}

	select {
	case <-ctx.Done():
		rc.cancelWait(jobID)
		return nil, ctx.Err()
	case body, ok := <-waitCh:
		if !ok {
			return nil, fmt.Errorf("%w: reply consumer for %s stopped before delivering job %s", broker.ErrTransport, functionName, jobID)
		}
		return body, nil
	}
}

// runReplyConsumer drains deliveries for one function's reply queue for
// as long as the channel stays open, routing each to its waiter or the
// result cache.
func (b *Broker) runReplyConsumer(functionName string, rc *replyConsumer, deliveries <-chan amqp.Delivery) {
	cache := b.cacheFor(functionName)

	for d := range deliveries {
		if d.CorrelationId == "" {
			d.Nack(false, false)
			b.logger.Error("reply delivery missing correlation_id", "function", functionName)
			continue
		}
		if err := d.Ack(false); err != nil {
			b.logger.Error("failed to ack reply delivery", "function", functionName, "error", err)
		}
		rc.deliver(d.CorrelationId, d.Body, cache)
		b.refreshCacheSizeMetric()
	}

	b.mu.Lock()
	rc.started = false
	b.mu.Unlock()
	rc.failAll()
}
