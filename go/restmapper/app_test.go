package restmapper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/fpesa/fpesa/go/schema"
)

// recordingAdapter stands in for a broker-backed adapter.
type recordingAdapter struct {
	data   json.RawMessage
	args   map[string]string
	result json.RawMessage
	err    error
}

func (a *recordingAdapter) Init(*Endpoint, *amqp.Connection) error { return nil }
func (a *recordingAdapter) Close() error                           { return nil }

func (a *recordingAdapter) Adapt(_ context.Context, data json.RawMessage, args map[string]string) (json.RawMessage, error) {
	a.data, a.args = data, args
	if a.result == nil {
		return json.RawMessage(`{}`), a.err
	}
	return a.result, a.err
}

func newTestApp(t *testing.T, endpoints ...*Endpoint) *httptest.Server {
	var app, err = NewApp(nil, endpoints)
	require.NoError(t, err)
	var srv = httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return srv
}

func decodeError(t *testing.T, resp *http.Response) (int, string) {
	var body struct {
		Error struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code, body.Error.Description
}

func TestPostWithBody(t *testing.T) {
	var adapter = &recordingAdapter{}
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "POST", Adapter: adapter,
		ReqDataSchema: schema.MustCompile(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"a": map[string]interface{}{"type": "integer"},
			},
			"additionalProperties": false,
		}),
	})

	resp, err := http.Post(srv.URL+"/testing/", "application/json", strings.NewReader(`{"a":2}`))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{}`, string(body))
	require.JSONEq(t, `{"a":2}`, string(adapter.data))
	require.Nil(t, adapter.args)
}

func TestValidationError(t *testing.T) {
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "POST", Adapter: &recordingAdapter{},
		ReqDataSchema: schema.MustCompile(map[string]interface{}{"type": "object"}),
	})

	resp, err := http.Post(srv.URL+"/testing/", "application/json", strings.NewReader(`"string"`))
	require.NoError(t, err)
	require.Equal(t, 500, resp.StatusCode)

	code, description := decodeError(t, resp)
	require.Equal(t, 500, code)
	require.Contains(t, description, "Can not validate request data json according to schema:")
	require.Contains(t, description, "object")
}

func TestBodyNotAllowed(t *testing.T) {
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "POST", Adapter: &recordingAdapter{},
	})

	resp, err := http.Post(srv.URL+"/testing/", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/testing/", "application/json", strings.NewReader(`{"x":1}`))
	require.NoError(t, err)
	require.Equal(t, 500, resp.StatusCode)
	_, description := decodeError(t, resp)
	require.Equal(t, "No request data allowed", description)
}

func TestBodyParseError(t *testing.T) {
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "POST", Adapter: &recordingAdapter{},
		ReqDataSchema: schema.MustCompile(map[string]interface{}{"type": "object"}),
	})

	resp, err := http.Post(srv.URL+"/testing/", "application/json", strings.NewReader(`{"a":`))
	require.NoError(t, err)
	require.Equal(t, 500, resp.StatusCode)
	_, description := decodeError(t, resp)
	require.Contains(t, description, "Can not parse request body as JSON:")
}

func TestRequestArgs(t *testing.T) {
	var adapter = &recordingAdapter{}
	var srv = newTestApp(t, &Endpoint{
		Path: "/args/", Method: "PUT", Adapter: adapter,
		ReqArgsSchema: schema.MustCompile(map[string]interface{}{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]interface{}{
				"key": map[string]interface{}{"type": "string"},
			},
		}),
	})

	req, _ := http.NewRequest("PUT", srv.URL+"/args/?key=value", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, map[string]string{"key": "value"}, adapter.args)
	require.Nil(t, adapter.data)
}

func TestArgsNotAllowed(t *testing.T) {
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "POST", Adapter: &recordingAdapter{},
		ReqDataSchema: schema.MustCompile(map[string]interface{}{"type": "object"}),
	})

	resp, err := http.Post(srv.URL+"/testing/?k=v", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Equal(t, 500, resp.StatusCode)
	_, description := decodeError(t, resp)
	require.Equal(t, "No request arguments allowed", description)
}

func TestMissingRequiredArgs(t *testing.T) {
	var adapter = &recordingAdapter{}
	var endpoints = StandardEndpoints()
	endpoints[1].Adapter = adapter
	endpoints[0].Adapter = &recordingAdapter{}
	var srv = newTestApp(t, endpoints...)

	// Missing offset/limit must fail before any broker traffic.
	resp, err := http.Get(srv.URL + "/messages/?offset=0")
	require.NoError(t, err)
	require.Equal(t, 500, resp.StatusCode)
	require.Nil(t, adapter.args)
}

func TestEndpointsDispatchIndependently(t *testing.T) {
	var first = &recordingAdapter{result: json.RawMessage(`{"n":1}`)}
	var second = &recordingAdapter{result: json.RawMessage(`{"n":2}`)}
	var srv = newTestApp(t,
		&Endpoint{Path: "/first/", Method: "GET", Adapter: first},
		&Endpoint{Path: "/second/", Method: "GET", Adapter: second},
	)

	// Each route reaches its own adapter, not the last one registered.
	resp, err := http.Get(srv.URL + "/second/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{"n":2}`, string(body))

	resp, err = http.Get(srv.URL + "/first/")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	require.JSONEq(t, `{"n":1}`, string(body))
}

func TestError404(t *testing.T) {
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "POST", Adapter: &recordingAdapter{},
	})

	resp, err := http.Get(srv.URL + "/does_not_exist/")
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)

	code, description := decodeError(t, resp)
	require.Equal(t, 404, code)
	require.Contains(t, description, "not found")
}

func TestAdapterFailure(t *testing.T) {
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "POST", Adapter: &recordingAdapter{
			err: fmt.Errorf("broker gone"),
		},
	})

	resp, err := http.Post(srv.URL+"/testing/", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, 500, resp.StatusCode)

	// The raw adapter error never leaks to the client.
	_, description := decodeError(t, resp)
	require.Equal(t, "Internal server error", description)
}

func TestAdapterResultPassedThrough(t *testing.T) {
	var srv = newTestApp(t, &Endpoint{
		Path: "/testing/", Method: "GET", Adapter: &recordingAdapter{
			result: json.RawMessage(`{"d":"e"}`),
		},
	})

	resp, err := http.Get(srv.URL + "/testing/")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{"d":"e"}`, string(body))
}
