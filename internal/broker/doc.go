// Package broker defines the capability contract every job-manager
// broker implementation satisfies, independent of transport.
//
// internal/rabbitmq provides the production AMQP 0-9-1/Celery-protocol
// implementation. A test double or an alternate transport only needs to
// satisfy Broker to be usable by internal/job's client and worker
// helpers.
package broker
