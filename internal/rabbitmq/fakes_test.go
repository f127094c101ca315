package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/mqtransport"
)

// fakeChannel is a minimal in-memory stand-in for *amqp091.Channel,
// enough to exercise declare/publish/consume without a live broker.
type fakeChannel struct {
	mu        sync.Mutex
	queues    map[string]bool
	exchanges map[string]bool
	consumers map[string]chan amqp.Delivery

	publishes []amqp.Publishing
	published chan struct {
		exchange, key string
		msg           amqp.Publishing
	}
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		queues:    make(map[string]bool),
		exchanges: make(map[string]bool),
		consumers: make(map[string]chan amqp.Delivery),
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges[name] = true
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[name] = true
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return nil
}

func (f *fakeChannel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.queues, name)
	return 0, nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan amqp.Delivery, 16)
	f.consumers[queue] = ch
	return ch, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	f.publishes = append(f.publishes, msg)
	target, ok := f.consumers[key]
	f.mu.Unlock()

	if ok {
		target <- amqp.Delivery{
			Acknowledger:  noopAcknowledger{},
			CorrelationId: msg.CorrelationId,
			ReplyTo:       msg.ReplyTo,
			Priority:      msg.Priority,
			Body:          msg.Body,
		}
	}
	return nil
}

func (f *fakeChannel) Close() error { return nil }

// deliverTo pushes a raw delivery directly into queue's consumer
// channel, for tests that want to simulate a message arriving without
// going through PublishWithContext's exchange/routing-key matching.
func (f *fakeChannel) deliverTo(queue string, d amqp.Delivery) {
	f.mu.Lock()
	ch, ok := f.consumers[queue]
	f.mu.Unlock()
	if ok {
		ch <- d
	}
}

type noopAcknowledger struct{}

func (noopAcknowledger) Ack(tag uint64, multiple bool) error                { return nil }
func (noopAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error { return nil }
func (noopAcknowledger) Reject(tag uint64, requeue bool) error              { return nil }

// fakePool hands back one preset *mqtransport.Conn without dialing.
type fakePool struct {
	conn *mqtransport.Conn
}

func (p *fakePool) Get(ctx context.Context, cfg mqtransport.ConnConfig) (*mqtransport.Conn, error) {
	return p.conn, nil
}

func (p *fakePool) CloseAll() error { return nil }

func newTestBroker() (*Broker, *fakeChannel) {
	ch := newFakeChannel()
	conn := mqtransport.NewTestConn(ch)
	b := newBroker(&fakePool{conn: conn}, mqtransport.ConnConfig{}, Options{})
	return b, ch
}
