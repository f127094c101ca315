package mqtransport

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp091.Channel the broker and topology
// code use. Depending on this interface rather than the concrete type
// lets tests exercise the RabbitMQ broker against a fake implementation
// instead of a live server.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// NewTestConn builds a Conn wrapping ch directly, bypassing the real
// dial sequence. Exported for other packages' tests that need a Conn
// backed by a fake Channel; not meant for production use.
func NewTestConn(ch Channel) *Conn {
	return &Conn{
		channel:     ch,
		replyQueues: make(map[string]string),
	}
}
