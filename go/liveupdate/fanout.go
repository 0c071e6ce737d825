package liveupdate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/bus"
)

// framePayload renders the envelope's data field as the client frame.
// A missing field is carried as the JSON literal null, never as an
// empty frame.
func framePayload(env bus.Envelope) []byte {
	if env.Data == nil {
		return []byte("null")
	}
	return env.Data
}

// Run consumes the durable `liveupdate` queue bound to the POST fanout
// exchange and forwards each message's data field to every live client.
// Delivery to clients is at-least-once; the broker message is acknowledged
// after the fan-out pass. Run returns when |ctx| is cancelled or the
// consumer fails.
func Run(ctx context.Context, conn *amqp.Connection, hub *Hub) error {
	var ch, err = bus.Channel(conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	// Declarations must mirror the fire-and-forget adapter's exactly.
	if err = bus.DeclareFanout(ch, bus.PostEndpoint); err != nil {
		return fmt.Errorf("declaring exchange %q: %w", bus.PostEndpoint, err)
	}
	queue, err := bus.DeclareDurableQueue(ch, bus.LiveupdateQueue)
	if err != nil {
		return fmt.Errorf("declaring queue %q: %w", bus.LiveupdateQueue, err)
	}
	if err = ch.QueueBind(queue.Name, "", bus.PostEndpoint, false, nil); err != nil {
		return fmt.Errorf("binding queue %q: %w", bus.LiveupdateQueue, err)
	}

	var tag = "liveupdate-" + uuid.NewString()
	deliveries, err := ch.Consume(queue.Name, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %q: %w", bus.LiveupdateQueue, err)
	}
	log.Info("waiting for messages...")

	defer hub.closeAll()
	for {
		select {
		case <-ctx.Done():
			// Stop the consumer; the in-flight message, if any, was already
			// acked or will be redelivered.
			_ = ch.Cancel(tag, false)
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("liveupdate consumer channel closed")
			}
			env, err := bus.DecodeEnvelope(d.Body)
			if err != nil {
				return fmt.Errorf("decoding bus message: %w", err)
			}
			hub.Broadcast(framePayload(env))
			if err = d.Ack(false); err != nil {
				return fmt.Errorf("acking bus message: %w", err)
			}
			fannedOutTotal.Inc()
		}
	}
}
