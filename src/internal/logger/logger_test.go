package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerMasksSensitiveFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Use(zap.New(core))
	defer restore()

	Info("submit", Fields{
		"pin":       "1234",
		"accountId": "acct-1",
		"payload":   map[string]any{"pinHash": "$2a$...", "amount": "10.00"},
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "******", ctx["pin"])
	assert.Equal(t, "acct-1", ctx["accountId"])

	payload, ok := ctx["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "******", payload["pinHash"])
	assert.Equal(t, "10.00", payload["amount"])
}

func TestErrorAddsErrorField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Use(zap.New(core))
	defer restore()

	Error("save failed", errors.New("boom"), Fields{"transactionId": "tx-1"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	assert.Equal(t, "tx-1", entries[0].ContextMap()["transactionId"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	restore := Use(zap.NewNop())
	defer restore()

	require.Error(t, Init("production", "loud"))
	require.NoError(t, Init("development", "debug"))
}
