// Package memory is an in-process Provider. It is the default storage for a single
// dashboard process and the fake used throughout the tests.
package memory

import (
	"context"

	"github.com/puzpuzpuz/xsync"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

type Provider struct {
	m *xsync.Map
}

var _ pr.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{m: xsync.NewMap()}
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.m.Load(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte) error {
	// copy so later mutation of the caller's slice cannot alter the stored entry
	b := make([]byte, len(value))
	copy(b, value)
	p.m.Store(key, b)
	return nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.m.Delete(key)
	return nil
}

// Keys lists stored keys in no particular order.
func (p *Provider) Keys() []string {
	var keys []string
	p.m.Range(func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func (p *Provider) Close(_ context.Context) error { return nil }
