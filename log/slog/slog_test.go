package slog

import (
	"bytes"
	"errors"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{
		Level: stdslog.LevelInfo,
		ReplaceAttr: func(_ []string, a stdslog.Attr) stdslog.Attr {
			if a.Key == stdslog.TimeKey {
				return stdslog.Attr{}
			}
			return a
		},
	})
	l := Logger{L: stdslog.New(h)}

	l.Debug("dropped below level", swrcache.Fields{"k": 1})
	l.Warn("cache storage fault", swrcache.Fields{"op": "read", "err": errors.New("timeout"), "key": "entry:crm:x"})
	l.Info("cleared", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `level=WARN msg="cache storage fault" err=timeout key=entry:crm:x op=read`, lines[0])
	assert.Equal(t, `level=INFO msg=cleared`, lines[1])
}
