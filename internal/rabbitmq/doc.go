// Package rabbitmq is the production broker.Broker implementation: an
// AMQP 0-9-1 transport speaking a wire payload compatible with
// Celery's task/result JSON protocol. It owns queue/exchange topology,
// the synchronous request/response RPC over a durable task queue plus
// a transient per-(connection, function) reply queue, and the worker
// consume loop with retry, failure-envelope construction, and explicit
// ack discipline.
package rabbitmq
