package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	messages []string
}

func (c *captureLogger) Error(msg string, fields map[string]interface{}) {
	c.messages = append(c.messages, msg)
}

func TestGuard_PassesThroughSuccess(t *testing.T) {
	log := &captureLogger{}

	err := Guard(log, "op", func() error { return nil })

	assert.NoError(t, err)
	assert.Empty(t, log.messages)
}

func TestGuard_LogsAndReturnsError(t *testing.T) {
	log := &captureLogger{}
	boom := errors.New("boom")

	err := Guard(log, "op", func() error { return boom })

	assert.Equal(t, boom, err)
	require.Len(t, log.messages, 1)
	assert.Equal(t, "operation failed", log.messages[0])
}

func TestGuard_RecoversPanic(t *testing.T) {
	log := &captureLogger{}

	var err error
	assert.NotPanics(t, func() {
		err = Guard(log, "op", func() error { panic("kaboom") })
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	require.Len(t, log.messages, 1)
	assert.Equal(t, "recovered panic", log.messages[0])
}

func TestGuard_PanicErrorCarriesStack(t *testing.T) {
	log := &captureLogger{}

	err := Guard(log, "op", func() error { panic("kaboom") })

	var panicked *PanicError
	require.ErrorAs(t, err, &panicked)
	assert.Equal(t, "op", panicked.Op)
	// The stack is captured at the recover site, so the panicking frame is
	// still on it.
	assert.Contains(t, string(panicked.Stack), "TestGuard_PanicErrorCarriesStack")
}
