// Package metrics is an in-process stats.Tracker whose values the dashboard server
// exposes as JSON.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bool64/stats"
)

// Counters keeps one value per metric name and label set.
type Counters struct {
	mu     sync.Mutex
	values map[string]float64

	collectMu  sync.Mutex
	collectors []Collector
}

// Collector sets gauges owned by another component, e.g. a storage provider's
// internal counters. It runs on every Snapshot.
type Collector func(ctx context.Context, t stats.Tracker)

var _ stats.Tracker = (*Counters)(nil)

func New() *Counters {
	return &Counters{values: make(map[string]float64)}
}

func (c *Counters) Add(_ context.Context, name string, increment float64, labelsAndValues ...string) {
	k := key(name, labelsAndValues)
	c.mu.Lock()
	c.values[k] += increment
	c.mu.Unlock()
}

func (c *Counters) Set(_ context.Context, name string, absolute float64, labelsAndValues ...string) {
	k := key(name, labelsAndValues)
	c.mu.Lock()
	c.values[k] = absolute
	c.mu.Unlock()
}

// OnSnapshot registers fn to refresh its gauges before each Snapshot.
func (c *Counters) OnSnapshot(fn Collector) {
	c.collectMu.Lock()
	c.collectors = append(c.collectors, fn)
	c.collectMu.Unlock()
}

// Snapshot runs the collectors, then copies every value, keyed like
// `swrcache_hit{namespace="crm"}`.
func (c *Counters) Snapshot() map[string]float64 {
	c.collectMu.Lock()
	collectors := append([]Collector(nil), c.collectors...)
	c.collectMu.Unlock()
	ctx := context.Background()
	for _, fn := range collectors {
		fn(ctx, c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func key(name string, lv []string) string {
	if len(lv) < 2 {
		return name
	}
	pairs := make([]string, 0, len(lv)/2)
	for i := 0; i+1 < len(lv); i += 2 {
		pairs = append(pairs, lv[i]+`="`+lv[i+1]+`"`)
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}
