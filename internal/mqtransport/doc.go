// Package mqtransport owns the AMQP connection lifecycle: a pool keyed
// by process id plus connection credentials (so a fork transparently
// gets a fresh connection instead of sharing a parent's channel), and
// the queue/exchange topology declarations the RabbitMQ broker needs —
// durable per-function task queues/exchanges and transient
// per-(connection, function) reply queues, both carrying the
// x-max-priority argument the broker's priority mapping relies on.
package mqtransport
