// Package ctxd adapts a github.com/bool64/ctxd logger. Lines are logged with the
// context given to New, so request-scoped fields set there are carried along.
package ctxd

import (
	"context"

	"github.com/bool64/ctxd"

	"github.com/unkn0wn-root/swrcache"
	swlog "github.com/unkn0wn-root/swrcache/log"
)

var _ swrcache.Logger = Logger{}

type Logger struct {
	L   ctxd.Logger
	Ctx context.Context
}

func New(ctx context.Context, l ctxd.Logger) Logger {
	if l == nil {
		l = ctxd.NoOpLogger{}
	}
	return Logger{L: l, Ctx: ctx}
}

func (l Logger) Debug(msg string, f swrcache.Fields) { l.L.Debug(l.ctx(), msg, kv(f)...) }
func (l Logger) Info(msg string, f swrcache.Fields)  { l.L.Info(l.ctx(), msg, kv(f)...) }
func (l Logger) Warn(msg string, f swrcache.Fields)  { l.L.Warn(l.ctx(), msg, kv(f)...) }
func (l Logger) Error(msg string, f swrcache.Fields) { l.L.Error(l.ctx(), msg, kv(f)...) }

func (l Logger) ctx() context.Context {
	if l.Ctx == nil {
		return context.Background()
	}
	return l.Ctx
}

func kv(f swrcache.Fields) []interface{} {
	keys := swlog.SortedKeys(f)
	if keys == nil {
		return nil
	}
	out := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
