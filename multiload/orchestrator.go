// Package multiload loads several independently cached data sources for one view.
//
// LoadAll first exposes whatever each source has cached, expired or not, so the view
// can render before any network round-trip. It then fetches every source concurrently.
// A successful fetch is written to the cache only when it differs from the cached
// payload; a failed fetch sets the source's error and keeps its last data. Per source,
// a newer request supersedes an older one and the older result is dropped on arrival.
package multiload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bool64/stats"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/internal/util"
)

var ErrUnknownSource = errors.New("multiload: unknown source")

// Options tune an Orchestrator. All fields are optional.
type Options struct {
	Logger swrcache.Logger  // nil => NopLogger
	Stats  stats.Tracker    // nil => stats.NoOp
	Tokens genstore.GenStore // nil => in-process store
	// MaxConcurrency bounds in-flight fetches per cycle; <= 0 is unbounded.
	MaxConcurrency int
	Now            func() time.Time // nil => time.Now
	// FoldFilters keys cache entries by source and a hash of the filters. Off, a
	// source has one entry that is served under any filters until the next fetch.
	FoldFilters bool
}

// Orchestrator owns the state of every registered source. F is the filter type
// shared by all sources of one load.
type Orchestrator[F any] struct {
	log    swrcache.Logger
	stat   stats.Tracker
	tokens genstore.GenStore
	limit  int
	now    func() time.Time
	fold   bool

	mu      sync.RWMutex
	sources []runner[F]
	byName  map[string]runner[F]
	started bool

	subsMu  sync.Mutex
	subs    map[uint64]chan Event
	nextSub uint64
}

func New[F any](opts Options) *Orchestrator[F] {
	o := &Orchestrator[F]{
		limit:  opts.MaxConcurrency,
		fold:   opts.FoldFilters,
		byName: make(map[string]runner[F]),
		subs:   make(map[uint64]chan Event),
	}
	o.log = util.Coalesce[swrcache.Logger](opts.Logger, swrcache.NopLogger{})
	o.stat = util.Coalesce[stats.Tracker](opts.Stats, stats.NoOp{})
	o.tokens = util.Coalesce[genstore.GenStore](opts.Tokens, genstore.NewLocalGenStore())
	o.now = opts.Now
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func (o *Orchestrator[F]) add(r runner[F]) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, dup := o.byName[r.name()]; dup {
		return fmt.Errorf("multiload: source %q already registered", r.name())
	}
	o.byName[r.name()] = r
	o.sources = append(o.sources, r)
	return nil
}

func (o *Orchestrator[F]) snapshot() []runner[F] {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]runner[F](nil), o.sources...)
}

// Sources lists source names in registration order.
func (o *Orchestrator[F]) Sources() []string {
	rs := o.snapshot()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.name()
	}
	return out
}

// LoadAll primes every source from cache, then fetches all of them concurrently.
// Priming is done when LoadAll returns; fetches settle in the background.
func (o *Orchestrator[F]) LoadAll(ctx context.Context, filters F) *Cycle {
	return o.start(ctx, filters, o.snapshot(), true)
}

// Refresh re-fetches every source without priming from cache.
func (o *Orchestrator[F]) Refresh(ctx context.Context, filters F) *Cycle {
	return o.start(ctx, filters, o.snapshot(), false)
}

// Retry re-fetches only the named source.
func (o *Orchestrator[F]) Retry(ctx context.Context, name string, filters F) (*Cycle, error) {
	o.mu.RLock()
	r, ok := o.byName[name]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return o.start(ctx, filters, []runner[F]{r}, false), nil
}

func (o *Orchestrator[F]) start(ctx context.Context, filters F, rs []runner[F], prime bool) *Cycle {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.name()
	}
	cy := newCycle(names)

	o.mu.Lock()
	o.started = true
	o.mu.Unlock()

	if prime {
		for _, r := range rs {
			r.prime(ctx, cy.ID, filters)
		}
	}
	gens := make([]uint64, len(rs))
	for i, r := range rs {
		gens[i] = r.begin(ctx, cy.ID)
	}
	o.log.Debug("load cycle started", swrcache.Fields{"cycle": cy.ID, "sources": len(rs), "primed": prime})

	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}
	// Go blocks once the limit is reached, so dispatch happens off the caller's goroutine.
	go func() {
		defer close(cy.done)
		for i, r := range rs {
			g.Go(func() error {
				r.run(ctx, cy.ID, filters, gens[i])
				return nil
			})
		}
		_ = g.Wait()
		o.log.Debug("load cycle done", swrcache.Fields{"cycle": cy.ID})
	}()
	return cy
}

// ClearCache invalidates every cache key any source has used. Source states are kept.
func (o *Orchestrator[F]) ClearCache(ctx context.Context) {
	rs := o.snapshot()
	for _, r := range rs {
		r.invalidate(ctx)
	}
	o.log.Info("source caches cleared", swrcache.Fields{"sources": len(rs)})
}

// Statuses returns every source's status in registration order.
func (o *Orchestrator[F]) Statuses() []Status {
	rs := o.snapshot()
	out := make([]Status, len(rs))
	for i, r := range rs {
		out[i] = r.status()
	}
	return out
}

func (o *Orchestrator[F]) Status(name string) (Status, bool) {
	o.mu.RLock()
	r, ok := o.byName[name]
	o.mu.RUnlock()
	if !ok {
		return Status{}, false
	}
	return r.status(), true
}

func (o *Orchestrator[F]) Page() PageState {
	o.mu.RLock()
	started := o.started
	o.mu.RUnlock()
	if !started {
		return PageIdle
	}
	return pageOf(o.Statuses())
}

func pageOf(ss []Status) PageState {
	loading := false
	for _, s := range ss {
		if s.HasData {
			return PageReady
		}
		loading = loading || s.Loading
	}
	if loading {
		return PageLoading
	}
	return PageFailed
}

// Subscribe returns a channel receiving an Event after every source state change.
// Delivery never blocks: events are dropped while the buffer is full.
// cancel unsubscribes and closes the channel.
func (o *Orchestrator[F]) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	o.subsMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	o.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.subsMu.Lock()
			defer o.subsMu.Unlock()
			// Close may already have closed it
			if _, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(ch)
			}
		})
	}
}

func (o *Orchestrator[F]) publish(cycle string, st Status) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	if len(o.subs) == 0 {
		return
	}
	ev := Event{Cycle: cycle, Status: st, Page: o.Page()}
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close releases the token store and closes subscriber channels.
func (o *Orchestrator[F]) Close(ctx context.Context) error {
	o.subsMu.Lock()
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
	o.subsMu.Unlock()
	return o.tokens.Close(ctx)
}
