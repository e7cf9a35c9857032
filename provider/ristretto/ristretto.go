package ristretto

import (
	"context"
	"errors"

	"github.com/bool64/stats"
	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // total bytes; each entry costs len(value)
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set is admission-controlled; a refused write surfaces as provider.ErrRejected.
// Accepted writes are flushed before returning so a following Get observes them.
func (p *Provider) Set(_ context.Context, key string, value []byte) error {
	b := make([]byte, len(value))
	copy(b, value)
	if !p.c.Set(key, b, int64(len(b))) {
		return pr.ErrRejected
	}
	p.c.Wait()
	return nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Report sets ristretto's own counters as gauges on t. It reports nothing unless
// Config.Metrics is set.
func (p *Provider) Report(ctx context.Context, t stats.Tracker) {
	m := p.c.Metrics
	if m == nil {
		return
	}
	t.Set(ctx, "ristretto_hits", float64(m.Hits()))
	t.Set(ctx, "ristretto_misses", float64(m.Misses()))
	t.Set(ctx, "ristretto_keys_added", float64(m.KeysAdded()))
	t.Set(ctx, "ristretto_keys_evicted", float64(m.KeysEvicted()))
	t.Set(ctx, "ristretto_sets_rejected", float64(m.SetsRejected()))
	t.Set(ctx, "ristretto_sets_dropped", float64(m.SetsDropped()))
	t.Set(ctx, "ristretto_cost_added", float64(m.CostAdded()))
	t.Set(ctx, "ristretto_cost_evicted", float64(m.CostEvicted()))
	t.Set(ctx, "ristretto_hit_ratio", m.Ratio())
}
