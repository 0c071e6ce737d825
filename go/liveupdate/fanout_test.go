package liveupdate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fpesa/fpesa/go/bus"
)

func TestFramePayload(t *testing.T) {
	env, err := bus.DecodeEnvelope([]byte(`{"data":{"a":2},"args":null}`))
	require.NoError(t, err)
	require.Equal(t, `{"a":2}`, string(framePayload(env)))

	// An explicit null data field decodes to the raw literal and is
	// forwarded as-is.
	env, err = bus.DecodeEnvelope([]byte(`{"data":null,"args":null}`))
	require.NoError(t, err)
	require.Equal(t, `null`, string(framePayload(env)))

	// An envelope missing the field entirely still frames as null.
	env, err = bus.DecodeEnvelope([]byte(`{"args":null}`))
	require.NoError(t, err)
	require.Equal(t, `null`, string(framePayload(env)))
}
