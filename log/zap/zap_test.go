package zap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unkn0wn-root/refcache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core))

	l.Debug("dropped", nil)
	l.Warn("store read failed", refcache.Fields{"op": "get", "err": errors.New("timeout")})

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	assert.Equal(t, "store read failed", e.Message)
	ctx := e.ContextMap()
	assert.Equal(t, "refcache", ctx["component"])
	assert.Equal(t, "get", ctx["op"])
	assert.Equal(t, "timeout", ctx["err"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l Logger
	l.Error("nothing", refcache.Fields{"k": 1})
	New(nil).Info("nothing", nil)
}
