package bus

import "encoding/json"

// Envelope is the JSON object wire-carried through the broker for every
// adapted request: {"data": <body-or-null>, "args": <query-map-or-null>}.
type Envelope struct {
	Data json.RawMessage   `json:"data"`
	Args map[string]string `json:"args"`
}

// Encode renders the envelope as UTF-8 JSON. Absent data and args encode
// as null, which is what workers expect on the wire.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a broker message body.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var e Envelope
	var err = json.Unmarshal(body, &e)
	return e, err
}
