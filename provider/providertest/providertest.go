// Package providertest holds the behaviour every provider.Provider must show.
package providertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Run exercises miss, set/get transparency, overwrite and idempotent delete on p.
func Run(t *testing.T, p pr.Provider) {
	t.Helper()
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		b, ok, err := p.Get(ctx, "entry:test:missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, b)
	})

	t.Run("byte transparent", func(t *testing.T) {
		in := []byte{'{', 0x00, 0xff, ' ', '}'}
		require.NoError(t, p.Set(ctx, "entry:test:raw", in))

		in[0] = 'X' // caller mutation must not leak into the store
		got, ok, err := p.Get(ctx, "entry:test:raw")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{'{', 0x00, 0xff, ' ', '}'}, got)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, p.Set(ctx, "entry:test:k", []byte(`{"v":"1"}`)))
		require.NoError(t, p.Set(ctx, "entry:test:k", []byte(`{"v":"2"}`)))
		got, ok, err := p.Get(ctx, "entry:test:k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `{"v":"2"}`, string(got))
	})

	t.Run("delete idempotent", func(t *testing.T) {
		require.NoError(t, p.Set(ctx, "entry:test:del", []byte("x")))
		require.NoError(t, p.Del(ctx, "entry:test:del"))
		require.NoError(t, p.Del(ctx, "entry:test:del"))
		_, ok, err := p.Get(ctx, "entry:test:del")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
