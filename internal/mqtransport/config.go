package mqtransport

import (
	"strconv"
	"time"
)

// ConnConfig is everything about a broker connection that participates
// in the connection-key tuple besides the process id, which Pool adds
// automatically from os.Getpid().
type ConnConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	Timeout  time.Duration
}

// key is the full connection-key tuple: (processId, host, port, user,
// password, vhost, timeout). Channels are not safe to share across
// forks, so pid is part of the key and a fork observes a fresh
// connection on first use.
type key struct {
	pid      int
	host     string
	port     int
	user     string
	password string
	vhost    string
	timeout  time.Duration
}

func (c ConnConfig) key(pid int) key {
	return key{
		pid:      pid,
		host:     c.Host,
		port:     c.Port,
		user:     c.User,
		password: c.Password,
		vhost:    c.VHost,
		timeout:  c.Timeout,
	}
}

// amqpURL renders the AMQP URI amqp091-go expects to dial.
func (c ConnConfig) amqpURL() string {
	vhost := c.VHost
	if vhost == "/" {
		vhost = ""
	}
	return "amqp://" + c.User + ":" + c.Password + "@" + c.Host + ":" + portString(c.Port) + "/" + vhost
}

func portString(port int) string {
	if port == 0 {
		port = 5672
	}
	return strconv.Itoa(port)
}
