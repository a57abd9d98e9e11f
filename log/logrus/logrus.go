// Package logrus adapts a *logrus.Entry to refcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/refcache"
)

var _ refcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l with a component field.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "refcache")}
}

func (l Logger) Debug(msg string, f refcache.Fields) { l.entry(f).Debug(msg) }
func (l Logger) Info(msg string, f refcache.Fields)  { l.entry(f).Info(msg) }
func (l Logger) Warn(msg string, f refcache.Fields)  { l.entry(f).Warn(msg) }
func (l Logger) Error(msg string, f refcache.Fields) { l.entry(f).Error(msg) }

func (l Logger) entry(f refcache.Fields) *logrus.Entry {
	e := l.E
	if e == nil {
		e = logrus.NewEntry(logrus.StandardLogger())
	}
	if err, ok := f["err"].(error); ok {
		e = e.WithError(err)
		rest := make(logrus.Fields, len(f))
		for k, v := range f {
			if k != "err" {
				rest[k] = v
			}
		}
		return e.WithFields(rest)
	}
	return e.WithFields(logrus.Fields(f))
}
