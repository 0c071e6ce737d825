package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/bus"
	"github.com/fpesa/fpesa/go/store"
)

// GetWorker serves paginated message reads over the bus RPC plane.
type GetWorker struct {
	Store *store.Store
	// Debug switches error replies from "Internal server error" to the
	// full error and stack trace. Never enable outside development: the
	// trace is delivered to the RPC caller.
	Debug bool
}

// Run consumes the GET queue until |ctx| is cancelled. Every request is
// acknowledged, success or failure: error information travels back to the
// waiting RPC caller, and poison messages must not starve the queue.
func (w *GetWorker) Run(ctx context.Context, conn *amqp.Connection) error {
	if err := w.Store.CreateTables(ctx); err != nil {
		return err
	}

	var ch, err = bus.Channel(conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	// Mirror the request/response adapter's declarations so either side may
	// start first.
	if err = bus.DeclareDirect(ch, bus.GetEndpoint); err != nil {
		return fmt.Errorf("declaring exchange %q: %w", bus.GetEndpoint, err)
	}
	queue, err := bus.DeclareQueue(ch, bus.GetEndpoint)
	if err != nil {
		return fmt.Errorf("declaring queue %q: %w", bus.GetEndpoint, err)
	}
	if err = ch.QueueBind(queue.Name, bus.GetEndpoint, bus.GetEndpoint, false, nil); err != nil {
		return fmt.Errorf("binding queue %q: %w", bus.GetEndpoint, err)
	}
	if err = bus.DeclareDirect(ch, bus.ReplyExchange); err != nil {
		return fmt.Errorf("declaring exchange %q: %w", bus.ReplyExchange, err)
	}

	var tag = "messages-get-" + uuid.NewString()
	deliveries, err := ch.Consume(queue.Name, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %q: %w", bus.GetEndpoint, err)
	}
	log.WithField("queue", bus.GetEndpoint).Info("get worker consuming")

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(tag, false)
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("get consumer channel closed")
			}
			log.WithField("deliveryTag", d.DeliveryTag).Info("request received")

			var reply = w.handleRequest(ctx, d.Body)
			err = ch.PublishWithContext(ctx, bus.ReplyExchange, d.ReplyTo, false, false,
				amqp.Publishing{
					ContentType:   "application/json",
					CorrelationId: d.CorrelationId,
					Body:          reply,
				})
			if err != nil {
				return fmt.Errorf("publishing reply: %w", err)
			}
			if err = d.Ack(false); err != nil {
				return fmt.Errorf("acking request: %w", err)
			}
		}
	}
}

// handleRequest turns a request envelope into a reply body. It never fails:
// any error, including a panic, becomes a JSON error reply.
func (w *GetWorker) handleRequest(ctx context.Context, body []byte) (reply []byte) {
	defer func() {
		if r := recover(); r != nil {
			reply = w.errorReply(fmt.Errorf("panic: %v", r))
		}
	}()

	var env, err = bus.DecodeEnvelope(body)
	if err != nil {
		return w.errorReply(fmt.Errorf("decoding request: %w", err))
	}
	offset, limit, paginationID, err := parseGetArgs(env.Args)
	if err != nil {
		return w.errorReply(err)
	}

	page, err := w.Store.Page(ctx, offset, limit, paginationID)
	if err != nil {
		return w.errorReply(err)
	}
	reply, err = json.Marshal(page)
	if err != nil {
		return w.errorReply(err)
	}
	getTotal.WithLabelValues("ok").Inc()
	return reply
}

func (w *GetWorker) errorReply(err error) []byte {
	log.WithField("err", err).Error("exception while handling message get")
	getTotal.WithLabelValues("error").Inc()

	var description = "Internal server error"
	if w.Debug {
		description = err.Error() + "\n" + string(debug.Stack())
	}
	var reply, mErr = json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{
			"code":        500,
			"description": description,
		},
	})
	if mErr != nil {
		panic(mErr) // Marshal of string maps cannot fail.
	}
	return reply
}

// parseGetArgs extracts the pagination parameters. The schema gate on the
// rest side constrains these to numeric strings, but requests may arrive
// from elsewhere on the bus and must still parse cleanly.
func parseGetArgs(args map[string]string) (offset, limit int, paginationID *int64, err error) {
	raw, ok := args["offset"]
	if !ok {
		return 0, 0, nil, fmt.Errorf("missing required argument 'offset'")
	}
	if offset, err = strconv.Atoi(raw); err != nil {
		return 0, 0, nil, fmt.Errorf("parsing 'offset': %w", err)
	}

	if raw, ok = args["limit"]; !ok {
		return 0, 0, nil, fmt.Errorf("missing required argument 'limit'")
	}
	if limit, err = strconv.Atoi(raw); err != nil {
		return 0, 0, nil, fmt.Errorf("parsing 'limit': %w", err)
	}
	limit = store.ClipLimit(limit)

	if raw, ok = args["paginationId"]; ok {
		var id int64
		if id, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, 0, nil, fmt.Errorf("parsing 'paginationId': %w", err)
		}
		paginationID = &id
	}
	return offset, limit, paginationID, nil
}
