// Package restmapper maps declared REST endpoints onto RabbitMQ exchanges.
// Most of a broker-backed REST endpoint is glue that shuttles request data
// into an exchange; an Endpoint declares that mapping once and the dispatcher
// runs it for every request.
package restmapper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fpesa/fpesa/go/schema"
)

// Adapter converts a validated request into broker traffic and produces the
// JSON result of the HTTP response.
type Adapter interface {
	// Init binds the adapter's broker resources. Each adapter owns its
	// channel; channels are never shared between adapters.
	Init(ep *Endpoint, conn *amqp.Connection) error
	// Adapt maps request body and query arguments to the response body.
	// Either may be nil when the endpoint declares no schema for it.
	Adapt(ctx context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error)
	Close() error
}

// Endpoint is an immutable declaration mapping (path, method) to an adapter.
// The endpoint name, path and method separated by a colon, names the
// exchange and queue carrying its requests.
type Endpoint struct {
	Path    string
	Method  string
	Adapter Adapter

	// ReqDataSchema validates the request body. When nil, requests must not
	// carry a body at all.
	ReqDataSchema *schema.Schema
	// ReqArgsSchema validates query arguments, mapped to string-to-string.
	// When nil, requests must not carry query arguments.
	ReqArgsSchema *schema.Schema
}

// Name returns the wire-visible endpoint name, e.g. "/messages/:POST".
func (e *Endpoint) Name() string {
	return e.Path + ":" + e.Method
}

// requestError is a dispatcher-boundary error with an HTTP status.
type requestError struct {
	code        int
	description string
}

func (e *requestError) Error() string { return e.description }

// decodeRequest applies the body and argument gates and returns the envelope
// parts handed to the adapter.
func (e *Endpoint) decodeRequest(r *http.Request) (json.RawMessage, map[string]string, *requestError) {
	var body, err = io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, &requestError{http.StatusInternalServerError,
			"Can not read request body: " + err.Error()}
	}

	var data json.RawMessage
	if e.ReqDataSchema == nil {
		if len(body) != 0 {
			return nil, nil, &requestError{http.StatusInternalServerError,
				"No request data allowed"}
		}
	} else {
		var decoded interface{}
		if err = json.Unmarshal(body, &decoded); err != nil {
			return nil, nil, &requestError{http.StatusInternalServerError,
				"Can not parse request body as JSON: " + err.Error()}
		}
		if err = e.ReqDataSchema.Validate(decoded); err != nil {
			return nil, nil, &requestError{http.StatusInternalServerError,
				"Can not validate request data json according to schema:\n" + err.Error()}
		}
		data = json.RawMessage(body)
	}

	var args map[string]string
	if e.ReqArgsSchema == nil {
		if len(r.URL.Query()) != 0 {
			return nil, nil, &requestError{http.StatusInternalServerError,
				"No request arguments allowed"}
		}
	} else {
		args = make(map[string]string)
		var asAny = make(map[string]interface{})
		for key, values := range r.URL.Query() {
			args[key] = values[0]
			asAny[key] = values[0]
		}
		if err = e.ReqArgsSchema.Validate(asAny); err != nil {
			return nil, nil, &requestError{http.StatusInternalServerError,
				"Can not validate request arguments according to schema:\n" + err.Error()}
		}
	}
	return data, args, nil
}
