package restmapper

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// App routes HTTP requests to declared endpoints. Every response body is
// valid JSON: adapter results on success, {"error": {code, description}}
// otherwise, with the HTTP status equal to the error code.
type App struct {
	router    *mux.Router
	endpoints []*Endpoint
}

// NewApp initializes every endpoint's adapter against |conn| and builds the
// request router.
func NewApp(conn *amqp.Connection, endpoints []*Endpoint) (*App, error) {
	var app = &App{
		router:    mux.NewRouter(),
		endpoints: endpoints,
	}

	for _, ep := range endpoints {
		ep := ep // per-iteration copy; required while the go directive is below 1.22
		if err := ep.Adapter.Init(ep, conn); err != nil {
			_ = app.Close()
			return nil, err
		}
		app.router.Path(ep.Path).Methods(ep.Method).
			HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				app.dispatch(ep, w, r)
			})
		log.WithFields(log.Fields{
			"path":   ep.Path,
			"method": ep.Method,
		}).Info("declared endpoint")
	}

	app.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound,
			"The requested URL was not found on the server.")
	})
	app.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed,
			"The method is not allowed for the requested URL.")
	})
	return app, nil
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Close releases every adapter's broker resources.
func (a *App) Close() error {
	var first error
	for _, ep := range a.endpoints {
		if err := ep.Adapter.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *App) dispatch(ep *Endpoint, w http.ResponseWriter, r *http.Request) {
	var data, args, reqErr = ep.decodeRequest(r)
	if reqErr != nil {
		writeError(w, reqErr.code, reqErr.description)
		return
	}

	var result, err = ep.Adapter.Adapt(r.Context(), data, args)
	if err != nil {
		log.WithFields(log.Fields{
			"endpoint": ep.Name(),
			"err":      err,
		}).Warn("adapter failed")
		// Adapter faults never leak internals to HTTP clients.
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, code int, description string) {
	var body, err = json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{
			"code":        code,
			"description": description,
		},
	})
	if err != nil {
		panic(err) // Marshal of string maps cannot fail.
	}
	writeJSON(w, code, body)
}
