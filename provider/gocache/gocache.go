// Package gocache adapts patrickmn/go-cache as a Provider. Entries never expire at
// this layer.
package gocache

import (
	"context"

	gc "github.com/patrickmn/go-cache"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

type Provider struct {
	c *gc.Cache
}

var _ pr.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{c: gc.New(gc.NoExpiration, 0)}
}

// NewWithCache wraps an existing go-cache instance.
func NewWithCache(c *gc.Cache) *Provider { return &Provider{c: c} }

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// drop unexpected entry shape
		p.c.Delete(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte) error {
	b := make([]byte, len(value))
	copy(b, value)
	p.c.Set(key, b, gc.NoExpiration)
	return nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error { return nil }
