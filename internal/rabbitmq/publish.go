package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/mqtransport"
)

// newJobID mints the random UUIDv4 job id §4.4 requires. Overridable in
// tests that need to know the id in advance.
var newJobID = func() string { return uuid.New().String() }

// RunJobAsync publishes a task envelope for functionName and returns as
// soon as the broker accepts the message (§4.4 "Publishing a task").
func (b *Broker) RunJobAsync(ctx context.Context, functionName string, args map[string]any, priority broker.Priority, retries int) (string, error) {
	conn, err := b.getConn(ctx)
	if err != nil {
		return "", err
	}
	ch, err := conn.Channel()
	if err != nil {
		return "", fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	// The publishing side does not carry the function's LazyQueue hint
	// (it is not part of the wire-level RunJobAsync call), so it declares
	// the queue without the lazy argument; the queue's actual mode is
	// pinned by whichever side — this publish or the worker's
	// StartWorker — declares it first.
	if err := mqtransport.DeclareTaskQueue(ch, functionName, false); err != nil {
		return "", fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	replyTo := conn.ReplyQueueName(functionName, func() string { return uuid.New().String() })
	if err := mqtransport.DeclareReplyQueue(ch, replyTo); err != nil {
		return "", fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	jobID := newJobID()
	env := newTaskEnvelope(jobID, functionName, args, retries)
	body, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: marshal task envelope: %v", broker.ErrDecode, err)
	}

	err = ch.PublishWithContext(ctx,
		functionName, // exchange
		functionName, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			DeliveryMode:    amqp.Persistent,
			Priority:        priority.AMQPValue(),
			CorrelationId:   jobID,
			ReplyTo:         replyTo,
			Body:            body,
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: publish task %s: %v", broker.ErrTransport, functionName, err)
	}

	b.logger.Debug("published job", "function", functionName, "job_id", jobID, "priority", priority)
	if b.metrics != nil {
		b.metrics.JobsPublished.WithLabelValues(functionName).Inc()
	}

	return jobID, nil
}
