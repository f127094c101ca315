package mqtransport

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// maxPriority is the x-max-priority argument carried by every task and
// reply queue, matching the broker's low/normal/high → 0/1/2 mapping.
const maxPriority = 3

// DeclareTaskQueue declares the durable task exchange and queue for
// functionName and binds the queue to the exchange with the function
// name as routing key. It is idempotent and meant to be called before
// every publish and at worker startup. lazy sets RabbitMQ's
// x-queue-mode to "lazy", favoring disk over memory for a large
// backlog, matching the function descriptor's LazyQueue attribute.
func DeclareTaskQueue(ch Channel, functionName string, lazy bool) error {
	if err := ch.ExchangeDeclare(
		functionName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", functionName, err)
	}

	args := amqp.Table{"x-max-priority": maxPriority}
	if lazy {
		args["x-queue-mode"] = "lazy"
	}
	if _, err := ch.QueueDeclare(
		functionName, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		args,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", functionName, err)
	}

	if err := ch.QueueBind(functionName, functionName, functionName, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to exchange %s: %w", functionName, functionName, err)
	}

	return nil
}

// DeclareReplyQueue declares the transient per-(connection, function)
// reply queue named name. It is non-durable but not auto-delete, per
// §4.4 — its lifetime is managed explicitly by the broker's Close, not
// by RabbitMQ's consumer-count bookkeeping.
func DeclareReplyQueue(ch Channel, name string) error {
	args := amqp.Table{"x-max-priority": maxPriority}
	if _, err := ch.QueueDeclare(
		name,  // name
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	); err != nil {
		return fmt.Errorf("declare reply queue %s: %w", name, err)
	}
	return nil
}

// DeleteReplyQueue removes the reply queue named name. Used by
// Broker.Close to tear down per-connection state (§9(c)).
func DeleteReplyQueue(ch Channel, name string) error {
	if _, err := ch.QueueDelete(name, false, false, false); err != nil {
		return fmt.Errorf("delete reply queue %s: %w", name, err)
	}
	return nil
}
