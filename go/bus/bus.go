// Package bus owns the process-wide RabbitMQ connection and the exchange and
// queue declarations shared by producers and consumers. Declarations are
// idempotent, but only when every declarer uses identical parameters, so all
// of them live here.
package bus

import (
	"fmt"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/config"
)

// Exchange and queue names which are wire-visible and shared across processes.
const (
	PostEndpoint    = "/messages/:POST"
	GetEndpoint     = "/messages/:GET"
	ReplyExchange   = "RPC"
	LiveupdateQueue = "liveupdate"
)

// URI renders the AMQP connection string for cfg. The default vhost "/"
// is carried as a bare trailing slash.
func URI(cfg config.RabbitMQ) string {
	var uri = url.URL{
		Scheme: "amqp",
		Host:   cfg.Host + ":5672",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Path:   "/",
	}
	if cfg.VirtualHost != "/" {
		uri.Path = "/" + cfg.VirtualHost
	}
	return uri.String()
}

// Dial opens the long-lived broker connection described by cfg.
func Dial(cfg config.RabbitMQ) (*amqp.Connection, error) {
	var conn, err = amqp.Dial(URI(cfg))
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq at %q: %w", cfg.Host, err)
	}
	log.WithFields(log.Fields{
		"host":  cfg.Host,
		"vhost": cfg.VirtualHost,
	}).Info("connected to rabbitmq")
	return conn, nil
}

// Channel opens a channel with prefetch 1. Adapters and workers each own
// their channel; a channel is never shared between them.
func Channel(conn *amqp.Connection) (*amqp.Channel, error) {
	var ch, err = conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err = ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("setting channel prefetch: %w", err)
	}
	return ch, nil
}

// DeclareFanout declares the non-durable fanout exchange |name|.
func DeclareFanout(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, "fanout", false, false, false, false, nil)
}

// DeclareDirect declares the non-durable direct exchange |name|.
func DeclareDirect(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, "direct", false, false, false, false, nil)
}

// DeclareDurableQueue declares the durable queue |name|. Durable queues
// retain messages published before any consumer starts.
func DeclareDurableQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}

// DeclareQueue declares the transient queue |name|.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, false, false, false, false, nil)
}

// DeclareReplyQueue declares a private, exclusive, broker-named queue and
// binds it to the RPC reply exchange under its own generated name.
func DeclareReplyQueue(ch *amqp.Channel) (amqp.Queue, error) {
	if err := DeclareDirect(ch, ReplyExchange); err != nil {
		return amqp.Queue{}, fmt.Errorf("declaring reply exchange: %w", err)
	}
	queue, err := ch.QueueDeclare("", false, false, true, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declaring reply queue: %w", err)
	}
	if err = ch.QueueBind(queue.Name, queue.Name, ReplyExchange, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("binding reply queue: %w", err)
	}
	return queue, nil
}
