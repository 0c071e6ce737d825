package restmapper

import (
	"github.com/fpesa/fpesa/go/schema"
)

// StandardEndpoints returns the bridge's declared endpoints:
//
//   - POST /messages/ publishes the message body, fire-and-forget.
//   - GET /messages/ runs a stable-pagination read over RPC.
func StandardEndpoints() []*Endpoint {
	var numeric = map[string]interface{}{"type": "string", "pattern": "^[0-9]+$"}

	return []*Endpoint{
		{
			Path:    "/messages/",
			Method:  "POST",
			Adapter: NewFireAndForgetAdapter(),
			ReqDataSchema: schema.MustCompile(map[string]interface{}{
				"type": "object",
			}),
		},
		{
			Path:    "/messages/",
			Method:  "GET",
			Adapter: NewRequestResponseAdapter(),
			ReqArgsSchema: schema.MustCompile(map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []interface{}{"offset", "limit"},
				"properties": map[string]interface{}{
					"offset":       numeric,
					"limit":        numeric,
					"paginationId": numeric,
				},
			}),
		},
	}
}
