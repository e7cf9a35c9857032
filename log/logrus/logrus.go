package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/swrcache"
)

var _ swrcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l, tagging every line with component=name when name is set.
func New(l *logrus.Logger, name string) LogrusLogger {
	e := logrus.NewEntry(l)
	if name != "" {
		e = e.WithField("component", name)
	}
	return LogrusLogger{E: e}
}

func (l LogrusLogger) Debug(msg string, f swrcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f swrcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f swrcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f swrcache.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f swrcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	// logrus renders errors under the "error" key only; keep them as strings elsewhere
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k != logrus.ErrorKey {
			v = err.Error()
		}
		out[k] = v
	}
	return l.E.WithFields(out)
}
