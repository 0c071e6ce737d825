package restmapper

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fpesa/fpesa/go/bus"
)

// FireAndForgetAdapter publishes the request envelope onto a fanout exchange
// named after the endpoint and answers the HTTP caller with an empty object.
// The durable queue is declared at init so messages published before any
// worker starts are retained.
type FireAndForgetAdapter struct {
	exchange string
	ch       *amqp.Channel
}

func NewFireAndForgetAdapter() *FireAndForgetAdapter {
	return &FireAndForgetAdapter{}
}

func (a *FireAndForgetAdapter) Init(ep *Endpoint, conn *amqp.Connection) error {
	var ch, err = bus.Channel(conn)
	if err != nil {
		return err
	}
	a.ch = ch
	a.exchange = ep.Name()

	if err = bus.DeclareFanout(ch, a.exchange); err != nil {
		return fmt.Errorf("declaring exchange %q: %w", a.exchange, err)
	}
	if _, err = bus.DeclareDurableQueue(ch, a.exchange); err != nil {
		return fmt.Errorf("declaring queue %q: %w", a.exchange, err)
	}
	if err = ch.QueueBind(a.exchange, "", a.exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue %q: %w", a.exchange, err)
	}
	return nil
}

func (a *FireAndForgetAdapter) Adapt(ctx context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error) {
	var body, err = bus.Envelope{Data: data, Args: args}.Encode()
	if err != nil {
		return nil, err
	}

	err = a.ch.PublishWithContext(ctx, a.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("publishing to %q: %w", a.exchange, err)
	}
	publishedTotal.WithLabelValues(a.exchange).Inc()

	return json.RawMessage(`{}`), nil
}

func (a *FireAndForgetAdapter) Close() error {
	if a.ch == nil {
		return nil
	}
	return a.ch.Close()
}
