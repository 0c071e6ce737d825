// Package messages holds the two bus workers: one drains posted messages
// into the store, the other serves paginated reads over RPC.
package messages

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/bus"
	"github.com/fpesa/fpesa/go/store"
)

// RunPostWorker consumes the POST queue and persists each envelope's data
// field as a new row. A failed insert is not acked and aborts the worker:
// the durable queue preserves the message, and the supervisor restart makes
// a persistent failure visible as a crash loop instead of silent dropping.
func RunPostWorker(ctx context.Context, conn *amqp.Connection, st *store.Store) error {
	if err := st.CreateTables(ctx); err != nil {
		return err
	}

	var ch, err = bus.Channel(conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	// Mirror the fire-and-forget adapter's declarations so either side may
	// start first.
	if err = bus.DeclareFanout(ch, bus.PostEndpoint); err != nil {
		return fmt.Errorf("declaring exchange %q: %w", bus.PostEndpoint, err)
	}
	queue, err := bus.DeclareDurableQueue(ch, bus.PostEndpoint)
	if err != nil {
		return fmt.Errorf("declaring queue %q: %w", bus.PostEndpoint, err)
	}
	if err = ch.QueueBind(queue.Name, "", bus.PostEndpoint, false, nil); err != nil {
		return fmt.Errorf("binding queue %q: %w", bus.PostEndpoint, err)
	}

	var tag = "messages-post-" + uuid.NewString()
	deliveries, err := ch.Consume(queue.Name, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %q: %w", bus.PostEndpoint, err)
	}
	log.WithField("queue", bus.PostEndpoint).Info("post worker consuming")

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(tag, false)
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("post consumer channel closed")
			}
			log.WithField("deliveryTag", d.DeliveryTag).Info("message received")

			env, err := bus.DecodeEnvelope(d.Body)
			if err != nil {
				postTotal.WithLabelValues("error").Inc()
				return fmt.Errorf("decoding bus message: %w", err)
			}
			if err = st.Insert(ctx, env.Data); err != nil {
				postTotal.WithLabelValues("error").Inc()
				return err
			}
			if err = d.Ack(false); err != nil {
				return fmt.Errorf("acking bus message: %w", err)
			}
			postTotal.WithLabelValues("ok").Inc()
		}
	}
}
