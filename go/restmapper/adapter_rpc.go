package restmapper

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/bus"
)

// DefaultRPCTimeout bounds the reply wait of a single RPC call.
const DefaultRPCTimeout = 30 * time.Second

// RequestResponseAdapter maps a REST request to a broker RPC. The request is
// published to a direct exchange named after the endpoint, carrying a fresh
// correlation_id and the name of a private exclusive reply queue. The worker
// publishes its reply to the `RPC` exchange with routing key = reply_to and
// the request's correlation_id; the reply body becomes the HTTP response.
//
// Concurrent in-flight calls share the channel and the reply queue. A single
// consumer goroutine routes each reply to the waiter registered under its
// correlation_id; replies with no waiter (late arrivals, broker misroutes)
// are acknowledged and discarded so they can never reach a later caller.
type RequestResponseAdapter struct {
	// Timeout bounds the reply wait. Zero means DefaultRPCTimeout.
	Timeout time.Duration

	exchange   string
	replyQueue string
	ch         *amqp.Channel
	router     replyRouter
}

func NewRequestResponseAdapter() *RequestResponseAdapter {
	return &RequestResponseAdapter{}
}

func (a *RequestResponseAdapter) Init(ep *Endpoint, conn *amqp.Connection) error {
	var ch, err = bus.Channel(conn)
	if err != nil {
		return err
	}
	a.ch = ch
	a.exchange = ep.Name()

	// Request exchange and queue, both named after the endpoint.
	if err = bus.DeclareDirect(ch, a.exchange); err != nil {
		return fmt.Errorf("declaring exchange %q: %w", a.exchange, err)
	}
	if _, err = bus.DeclareQueue(ch, a.exchange); err != nil {
		return fmt.Errorf("declaring queue %q: %w", a.exchange, err)
	}
	if err = ch.QueueBind(a.exchange, a.exchange, a.exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue %q: %w", a.exchange, err)
	}

	// Reply plumbing: the RPC exchange plus a broker-named exclusive queue.
	queue, err := bus.DeclareReplyQueue(ch)
	if err != nil {
		return err
	}
	a.replyQueue = queue.Name

	deliveries, err := ch.Consume(
		a.replyQueue, "restmapper-"+uuid.NewString(), false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming reply queue %q: %w", a.replyQueue, err)
	}
	go a.consumeReplies(deliveries)

	return nil
}

// consumeReplies routes incoming replies to their waiters. It exits when the
// channel is closed.
func (a *RequestResponseAdapter) consumeReplies(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if !a.router.resolve(d.CorrelationId, d.Body) {
			log.WithFields(log.Fields{
				"correlationId": d.CorrelationId,
				"queue":         a.replyQueue,
			}).Warn("dropping reply with no waiter")
		}
		_ = d.Ack(false)
	}
}

func (a *RequestResponseAdapter) Adapt(ctx context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error) {
	var body, err = bus.Envelope{Data: data, Args: args}.Encode()
	if err != nil {
		return nil, err
	}

	var token = newCorrelationID()
	var mailbox = a.router.register(token)
	defer a.router.cancel(token)

	err = a.ch.PublishWithContext(ctx, a.exchange, a.exchange, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: token,
		ReplyTo:       a.replyQueue,
		Body:          body,
	})
	if err != nil {
		rpcTotal.WithLabelValues(a.exchange, "publish_error").Inc()
		return nil, fmt.Errorf("publishing to %q: %w", a.exchange, err)
	}

	var timeout = a.Timeout
	if timeout == 0 {
		timeout = DefaultRPCTimeout
	}
	var timer = time.NewTimer(timeout)
	defer timer.Stop()

	log.WithFields(log.Fields{
		"correlationId": token,
		"queue":         a.replyQueue,
	}).Debug("waiting for rpc reply")

	select {
	case reply := <-mailbox:
		rpcTotal.WithLabelValues(a.exchange, "ok").Inc()
		return reply, nil
	case <-timer.C:
		rpcTotal.WithLabelValues(a.exchange, "timeout").Inc()
		return nil, fmt.Errorf("timed out after %s awaiting reply %s", timeout, token)
	case <-ctx.Done():
		rpcTotal.WithLabelValues(a.exchange, "canceled").Inc()
		return nil, ctx.Err()
	}
}

func (a *RequestResponseAdapter) Close() error {
	if a.ch == nil {
		return nil
	}
	return a.ch.Close()
}

// newCorrelationID returns a fresh random 128-bit token as lowercase hex.
func newCorrelationID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err) // The kernel CSPRNG does not fail.
	}
	return hex.EncodeToString(buf[:])
}

// replyRouter maps in-flight correlation ids to waiter mailboxes.
type replyRouter struct {
	mu      sync.Mutex
	pending map[string]chan json.RawMessage
}

// register creates a mailbox for |token|. The mailbox is buffered so the
// consumer goroutine never blocks on a waiter that has already given up.
func (r *replyRouter) register(token string) <-chan json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		r.pending = make(map[string]chan json.RawMessage)
	}
	var mailbox = make(chan json.RawMessage, 1)
	r.pending[token] = mailbox
	return mailbox
}

// cancel withdraws the waiter for |token|. A reply arriving afterwards is
// discarded by the consumer, never delivered to a later caller.
func (r *replyRouter) cancel(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, token)
}

// resolve delivers |body| to the waiter of |token|, if one exists.
func (r *replyRouter) resolve(token string, body []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mailbox, ok = r.pending[token]
	if !ok {
		return false
	}
	delete(r.pending, token)
	mailbox <- append(json.RawMessage(nil), body...)
	return true
}
