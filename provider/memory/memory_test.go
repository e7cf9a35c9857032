package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unkn0wn-root/swrcache/provider/providertest"
)

func TestProvider(t *testing.T) {
	providertest.Run(t, New())
}

func TestKeys(t *testing.T) {
	p := New()
	ctx := context.Background()
	_ = p.Set(ctx, "a", []byte("1"))
	_ = p.Set(ctx, "b", []byte("2"))
	assert.ElementsMatch(t, []string{"a", "b"}, p.Keys())
}
