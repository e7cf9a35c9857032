package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/swrcache"
	swlog "github.com/unkn0wn-root/swrcache/log"
)

var _ swrcache.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger so cache lines can be filtered, e.g. "swrcache".
func New(l *zap.Logger, name string) ZapLogger {
	if name != "" {
		l = l.Named(name)
	}
	return ZapLogger{L: l}
}

func (z ZapLogger) Debug(msg string, f swrcache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f swrcache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f swrcache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f swrcache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f swrcache.Fields) []zap.Field {
	keys := swlog.SortedKeys(f)
	if keys == nil {
		return nil
	}
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
