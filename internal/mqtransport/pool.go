package mqtransport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Conn is one pooled AMQP connection plus its single channel (channel
// number 1, prefetch 1, per §3's connection-key invariant). It also
// carries the per-(connection, function) state that resets along with
// the connection: the reply-to queue name minted for each function,
// and (owned by the caller, keyed the same way) a result cache.
//
// amqp091-go channels are not safe to share across a fork, so a new
// pid always misses the pool and gets its own Conn.
type Conn struct {
	cfg    ConnConfig
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel Channel
	closed  bool

	replyQueues map[string]string // function name -> reply queue name
}

// ReplyQueueName returns the reply-to queue name for functionName,
// minting and remembering a fresh UUID-named queue on first use for
// this connection.
func (c *Conn) ReplyQueueName(functionName string, mint func() string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.replyQueues[functionName]; ok {
		return name
	}
	name := mint()
	c.replyQueues[functionName] = name
	return name
}

// ReplyQueueNameIfExists returns the reply queue name remembered for
// functionName, without minting one if none exists yet.
func (c *Conn) ReplyQueueNameIfExists(functionName string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.replyQueues[functionName]
	return name, ok
}

// ForgetReplyQueue drops the remembered reply queue name for
// functionName, so the next ReplyQueueName call mints a fresh one —
// used after Close tears the queue down.
func (c *Conn) ForgetReplyQueue(functionName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.replyQueues, functionName)
}

// ReplyQueueFunctions returns the function names that currently have a
// reply queue declared on this connection.
func (c *Conn) ReplyQueueFunctions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.replyQueues))
	for functionName := range c.replyQueues {
		names = append(names, functionName)
	}
	return names
}

// Channel returns the connection's single open channel.
func (c *Conn) Channel() (Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.channel == nil {
		return nil, fmt.Errorf("mqtransport: no channel available")
	}
	return c.channel, nil
}

func (c *Conn) dial() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialer := amqp.DefaultDial(c.cfg.Timeout)
	conn, err := amqp.DialConfig(c.cfg.amqpURL(), amqp.Config{Dial: dialer})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("set prefetch: %w", err)
	}

	c.conn = conn
	c.channel = ch
	c.replyQueues = make(map[string]string)

	return nil
}

func (c *Conn) watch(onClosed func()) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	err := <-notifyClose

	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	if alreadyClosed {
		return
	}
	if err != nil {
		c.logger.Warn("amqp connection closed", "error", err)
	} else {
		c.logger.Info("amqp connection closed")
	}
	onClosed()
}

// Close closes the connection's channel and the connection itself.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.channel != nil {
		if cerr := c.channel.Close(); cerr != nil {
			err = cerr
		}
	}
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Pool caches one Conn per connection-key tuple (§3), keyed on
// os.Getpid() so that a fork — which inherits file descriptors but
// must not share an AMQP channel with its parent — transparently
// observes a pool miss and dials its own connection.
type Pool struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[key]*Conn
}

// NewPool returns an empty connection pool.
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{logger: logger, conns: make(map[key]*Conn)}
}

// Get returns the pooled Conn for cfg, dialing a new one on a miss
// (including a miss caused by a changed pid, i.e. a fork). The
// returned Conn is removed from the pool automatically if the
// underlying AMQP connection closes, so the next Get redials.
func (p *Pool) Get(ctx context.Context, cfg ConnConfig) (*Conn, error) {
	k := cfg.key(os.Getpid())

	p.mu.Lock()
	if c, ok := p.conns[k]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c := &Conn{cfg: cfg, logger: p.logger}
	if err := c.dial(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.conns[k] = c
	p.mu.Unlock()

	go c.watch(func() {
		p.mu.Lock()
		if p.conns[k] == c {
			delete(p.conns, k)
		}
		p.mu.Unlock()
	})

	p.logger.Info("connected to RabbitMQ", "host", cfg.Host, "vhost", cfg.VHost)
	return c, nil
}

// CloseAll closes every pooled connection. Intended for process
// shutdown.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	conns := make([]*Conn, 0, len(p.conns))
	for k, c := range p.conns {
		conns = append(conns, c)
		delete(p.conns, k)
	}
	p.mu.Unlock()

	var firstErr error
	for _, c := range conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
