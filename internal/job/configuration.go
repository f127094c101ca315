package job

import (
	"sync"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
)

// Configuration carries the single broker.Broker handle a process uses
// to submit and run jobs remotely. It is deliberately small: the
// original library's notion of a sprawling global config is reduced
// here to the one piece of state that actually needs process-wide
// sharing.
//
// A Configuration can be locked once startup wiring is complete, so
// that later code cannot swap the broker out from under in-flight
// workers.
type Configuration struct {
	mu     sync.RWMutex
	broker broker.Broker
	locked bool
}

// NewConfiguration returns a Configuration wrapping b. b may be nil;
// callers that only ever use RunLocally never need a broker.
func NewConfiguration(b broker.Broker) *Configuration {
	return &Configuration{broker: b}
}

// Broker returns the configured broker, or nil if none was set.
func (c *Configuration) Broker() broker.Broker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.broker
}

// SetBroker replaces the configured broker. It fails with
// ErrConfigurationLocked once Lock has been called.
func (c *Configuration) SetBroker(b broker.Broker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked {
		return ErrConfigurationLocked
	}
	c.broker = b
	return nil
}

// Lock prevents any further calls to SetBroker from succeeding.
func (c *Configuration) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = true
}

var defaultConfiguration = NewConfiguration(nil)

// Default returns the process-wide Configuration used by callers that
// don't carry their own. cmd/jobworker wires its broker into this
// instance at startup; cmd/jobctl calls its broker directly and does
// not use it.
func Default() *Configuration {
	return defaultConfiguration
}
