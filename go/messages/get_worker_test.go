package messages

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGetArgs(t *testing.T) {
	var offset, limit, pid, err = parseGetArgs(map[string]string{
		"offset": "5", "limit": "10",
	})
	require.NoError(t, err)
	require.Equal(t, 5, offset)
	require.Equal(t, 10, limit)
	require.Nil(t, pid)

	offset, limit, pid, err = parseGetArgs(map[string]string{
		"offset": "0", "limit": "10", "paginationId": "97",
	})
	require.NoError(t, err)
	require.Equal(t, 0, offset)
	require.Equal(t, 10, limit)
	require.NotNil(t, pid)
	require.Equal(t, int64(97), *pid)
}

func TestParseGetArgsClipsLimit(t *testing.T) {
	var _, limit, _, err = parseGetArgs(map[string]string{
		"offset": "0", "limit": "200",
	})
	require.NoError(t, err)
	require.Equal(t, 100, limit)
}

func TestParseGetArgsMissingRequired(t *testing.T) {
	var _, _, _, err = parseGetArgs(map[string]string{"limit": "10"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "offset")

	_, _, _, err = parseGetArgs(map[string]string{"offset": "0"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "limit")

	_, _, _, err = parseGetArgs(nil)
	require.Error(t, err)
}

func TestParseGetArgsRejectsNonNumeric(t *testing.T) {
	var _, _, _, err = parseGetArgs(map[string]string{
		"offset": "x", "limit": "10",
	})
	require.Error(t, err)

	_, _, _, err = parseGetArgs(map[string]string{
		"offset": "0", "limit": "10", "paginationId": "later",
	})
	require.Error(t, err)
}

func decodeErrorReply(t *testing.T, reply []byte) string {
	var body struct {
		Error struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(reply, &body))
	require.Equal(t, 500, body.Error.Code)
	return body.Error.Description
}

func TestHandleRequestHidesErrorsByDefault(t *testing.T) {
	var w = &GetWorker{}

	// Bad envelope and bad arguments both produce an opaque error reply.
	var reply = w.handleRequest(context.Background(), []byte(`{"args":`))
	require.Equal(t, "Internal server error", decodeErrorReply(t, reply))

	reply = w.handleRequest(context.Background(), []byte(`{"args":{"offset":"0"}}`))
	require.Equal(t, "Internal server error", decodeErrorReply(t, reply))
}

func TestHandleRequestDebugCarriesDetail(t *testing.T) {
	var w = &GetWorker{Debug: true}

	var reply = w.handleRequest(context.Background(), []byte(`{"args":{"limit":"10"}}`))
	var description = decodeErrorReply(t, reply)
	require.Contains(t, description, "offset")
	require.Contains(t, description, "goroutine") // stack trace
}
