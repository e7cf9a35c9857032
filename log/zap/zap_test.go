package zap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/swrcache"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core), "swrcache")

	l.Debug("wrote cache entry", swrcache.Fields{"key": "company", "bytes": 42})
	l.Warn("cache storage fault", swrcache.Fields{"op": "write", "err": errors.New("quota exceeded")})
	l.Info("cleared", nil)
	l.Error("boom", swrcache.Fields{})

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "swrcache", entries[0].LoggerName)
	assert.Equal(t, map[string]any{"key": "company", "bytes": int64(42)}, entries[0].ContextMap())
	require.Len(t, entries[0].Context, 2)
	assert.Equal(t, "bytes", entries[0].Context[0].Key, "fields are sorted")

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "quota exceeded", entries[1].ContextMap()["err"])

	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Empty(t, entries[2].Context)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}
