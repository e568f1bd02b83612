package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_LevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))
	l.SetLevel(LevelWarn)

	l.Info("dropped")
	l.Warn("kept", String("entity", "player"), Uint64("entity_id", 7))
	l.Error("failed", Error(errors.New("boom")))

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "player", entries[0].ContextMap()["entity"])
	assert.Equal(t, uint64(7), entries[0].ContextMap()["entity_id"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, LevelWarn, l.GetLevel())
}

func TestLogger_WithSharesLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))
	child := l.With(String("component", "bus"))

	l.SetLevel(LevelError)
	child.Warn("suppressed")
	child.Error("visible")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "bus", logs.All()[0].ContextMap()["component"])
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("WARNING")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, lvl)

	lvl, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, LevelInfo, lvl)

	assert.Equal(t, "debug", LevelDebug.String())
}

func TestNop(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Info("nothing")
		l.With(Int("n", 1)).Error("nothing")
	})
}
