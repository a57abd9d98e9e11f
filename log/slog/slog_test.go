package slog

import (
	"bytes"
	stdslog "log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/unkn0wn-root/refcache"
)

func TestLoggerWritesSortedAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("hidden", nil)
	l.Info("group invalidated", refcache.Fields{"ref": 42, "group": "g:users"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `msg="group invalidated" group=g:users ref=42`)
}
