package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base, "swrcache")

	l.Debug("self heal", swrcache.Fields{"key": "entry:crm:company", "reason": "corrupt"})
	l.Warn("cache storage fault", swrcache.Fields{"err": errors.New("disk full")})
	l.Info("no fields", nil)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)

	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	assert.Equal(t, "self heal", entries[0].Message)
	assert.Equal(t, "corrupt", entries[0].Data["reason"])
	assert.Equal(t, "swrcache", entries[0].Data["component"])

	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].Data["err"])

	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Len(t, hook.LastEntry().Data, 1)
}
