// Package zap adapts a *zap.Logger to refcache.Logger.
package zap

import (
	"sort"

	"github.com/unkn0wn-root/refcache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ refcache.Logger = Logger{}

// Logger forwards cache logs to L. A nil L drops everything.
type Logger struct{ L *zap.Logger }

// New returns a Logger that tags every entry with component=refcache.
func New(l *zap.Logger) Logger {
	if l == nil {
		return Logger{}
	}
	return Logger{L: l.With(zap.String("component", "refcache"))}
}

func (z Logger) Debug(msg string, f refcache.Fields) { z.log(zap.DebugLevel, msg, f) }
func (z Logger) Info(msg string, f refcache.Fields)  { z.log(zap.InfoLevel, msg, f) }
func (z Logger) Warn(msg string, f refcache.Fields)  { z.log(zap.WarnLevel, msg, f) }
func (z Logger) Error(msg string, f refcache.Fields) { z.log(zap.ErrorLevel, msg, f) }

func (z Logger) log(lvl zapcore.Level, msg string, f refcache.Fields) {
	if z.L == nil {
		return
	}
	if ce := z.L.Check(lvl, msg); ce != nil {
		ce.Write(fields(f)...)
	}
}

// fields converts f in key order so output is stable.
func fields(f refcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
