package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/jobrunner"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/mqtransport"
	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/telemetry"
)

// StartWorker implements §4.4's worker loop: declare the task queue,
// consume with manual ack, and for each delivery parse/execute/publish
// result/ack in sequence. It returns only when ctx is canceled or a
// transport/protocol error makes continuing unsafe.
func (b *Broker) StartWorker(ctx context.Context, functionName string, spec broker.ExecutorSpec) error {
	conn, err := b.getConn(ctx)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	if err := mqtransport.DeclareTaskQueue(ch, functionName, spec.LazyQueue); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	deliveries, err := ch.Consume(functionName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%w: consume task queue %s: %v", broker.ErrTransport, functionName, err)
	}

	b.logger.Info("worker started", "function", functionName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: task queue %s delivery channel closed", broker.ErrTransport, functionName)
			}
			if err := b.handleTaskDelivery(ctx, functionName, spec, d); err != nil {
				return err
			}
		}
	}
}

// handleTaskDelivery executes exactly one task message end to end. A
// returned error is fatal to the worker loop (transport/protocol
// failures); a failure of the function body itself is instead folded
// into a FAILURE result envelope and the loop keeps running.
func (b *Broker) handleTaskDelivery(ctx context.Context, functionName string, spec broker.ExecutorSpec, d amqp.Delivery) error {
	if d.CorrelationId == "" || d.ReplyTo == "" {
		d.Nack(false, false)
		return fmt.Errorf("%w: task delivery missing correlation_id or reply_to", broker.ErrProtocol)
	}

	var env taskEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		d.Nack(false, false)
		return fmt.Errorf("%w: unmarshal task envelope: %v", broker.ErrDecode, err)
	}
	if env.Task != functionName {
		d.Nack(false, false)
		return fmt.Errorf("%w: task %q delivered to %q's queue", broker.ErrProtocol, env.Task, functionName)
	}

	if b.metrics != nil {
		b.metrics.JobsConsumed.WithLabelValues(functionName).Inc()
	}

	logger := telemetry.WithFunction(telemetry.WithJobID(b.logger, env.ID), functionName)
	result, runErr := jobrunner.Run(ctx, logger, env.ID, functionName, spec.Retries, spec.Run, env.Kwargs)

	var resultEnv resultEnvelope
	if runErr != nil {
		resultEnv = newFailureEnvelope(env.ID, runErr)
		if b.metrics != nil {
			b.metrics.JobsFailed.WithLabelValues(functionName).Inc()
		}
	} else {
		resultEnv = newSuccessEnvelope(env.ID, result)
		if b.metrics != nil {
			b.metrics.JobsSucceeded.WithLabelValues(functionName).Inc()
		}
	}

	if spec.PublishResults {
		if err := b.publishResult(ctx, functionName, d.ReplyTo, env.ID, d.Priority, resultEnv); err != nil {
			return err
		}
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("%w: ack task delivery: %v", broker.ErrTransport, err)
	}

	return nil
}

// publishResult declares replyTo (transient, per §4.4) and publishes
// env to it, carrying the priority from the original request (default
// 0 if absent) and celeryJobId as correlation_id.
func (b *Broker) publishResult(ctx context.Context, functionName, replyTo, jobID string, priority uint8, env resultEnvelope) error {
	conn, err := b.getConn(ctx)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	if err := mqtransport.DeclareReplyQueue(ch, replyTo); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrTransport, err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: marshal result envelope: %v", broker.ErrDecode, err)
	}

	err = ch.PublishWithContext(ctx,
		"",      // exchange: publish directly to the reply queue
		replyTo, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			DeliveryMode:    amqp.Transient,
			Priority:        priority,
			CorrelationId:   jobID,
			Body:            body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: publish result to %s: %v", broker.ErrTransport, replyTo, err)
	}

	b.logger.Debug("published result", "function", functionName, "job_id", jobID, "status", env.Status)
	return nil
}
