package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestVerbosityLevel(t *testing.T) {
	require.Equal(t, log.WarnLevel, verbosityLevel(0, 0))
	require.Equal(t, log.InfoLevel, verbosityLevel(1, 0))
	require.Equal(t, log.DebugLevel, verbosityLevel(2, 0))
	require.Equal(t, log.ErrorLevel, verbosityLevel(0, 1))
	require.Equal(t, log.FatalLevel, verbosityLevel(0, 2))

	// The sum clamps to [10, 50].
	require.Equal(t, log.DebugLevel, verbosityLevel(5, 0))
	require.Equal(t, log.FatalLevel, verbosityLevel(0, 5))
	require.Equal(t, log.WarnLevel, verbosityLevel(2, 2))
}
