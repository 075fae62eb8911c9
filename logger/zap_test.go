package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapLoggerFrom(zap.New(core))

	l.Debug("dropped", nil)
	l.Info("payment signed", map[string]any{"network": "base", "x402Version": 1})
	l.Error("signing failed", map[string]any{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "payment signed", entries[0].Message)
	assert.Equal(t, "base", entries[0].ContextMap()["network"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestOrNoop(t *testing.T) {
	assert.IsType(t, NoopLogger{}, OrNoop(nil))
}

func TestNewZapLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewZapLoggerTo(&buf, "warn")
	require.NoError(t, err)

	l.Info("dropped", nil)
	l.Warn("window override", map[string]any{"validBefore": "1700000600"})

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"window override"`)
	assert.Contains(t, out, `"logger":"x402pay"`)
	assert.Contains(t, out, `"validBefore":"1700000600"`)
}
