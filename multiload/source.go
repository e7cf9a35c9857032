package multiload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/compare"
	"github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/internal/util"
)

// FetchFunc loads one source for filters. It should fail with a human-readable error.
type FetchFunc[F, V any] func(ctx context.Context, filters F) (V, error)

// SourceConfig describes one independently cached data source.
type SourceConfig[F, V any] struct {
	Name  string
	Key   string        // cache key; "" => Name
	TTL   time.Duration // <= 0 never expires
	Cache swrcache.Cache[V]
	Fetch FetchFunc[F, V]
	// Equal decides whether a fetched payload differs from the cached one.
	// nil => compare.Equal
	Equal func(cached, fetched V) bool
}

// runner is the type-erased view the orchestrator keeps of a Source.
type runner[F any] interface {
	name() string
	prime(ctx context.Context, cycle string, filters F)
	begin(ctx context.Context, cycle string) uint64
	run(ctx context.Context, cycle string, filters F, gen uint64)
	status() Status
	invalidate(ctx context.Context)
}

// Source is a registered data source.
type Source[F, V any] struct {
	o     *Orchestrator[F]
	cfg   SourceConfig[F, V]
	equal func(a, b V) bool

	// settle serializes token issuance with the read-compare-write of a settlement.
	settle sync.Mutex

	mu sync.RWMutex
	st State[V]

	keysMu sync.Mutex
	keys   map[string]struct{}
}

var _ runner[struct{}] = (*Source[struct{}, int])(nil)

// Register adds a source to o. Names must be unique.
func Register[F, V any](o *Orchestrator[F], cfg SourceConfig[F, V]) (*Source[F, V], error) {
	if cfg.Name == "" {
		return nil, errors.New("multiload: source name is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("multiload: source %q: cache is required", cfg.Name)
	}
	if cfg.Fetch == nil {
		return nil, fmt.Errorf("multiload: source %q: fetch is required", cfg.Name)
	}
	cfg.Key = util.Coalesce(cfg.Key, cfg.Name)

	s := &Source[F, V]{
		o:     o,
		cfg:   cfg,
		equal: cfg.Equal,
		keys:  map[string]struct{}{cfg.Key: {}},
	}
	if s.equal == nil {
		s.equal = func(a, b V) bool { return compare.Equal(a, b) }
	}
	if err := o.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source[F, V]) Name() string { return s.cfg.Name }

// State returns a copy of the current state.
func (s *Source[F, V]) State() State[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

func (s *Source[F, V]) name() string { return s.cfg.Name }

func (s *Source[F, V]) status() Status {
	return statusOf(s.cfg.Name, s.State())
}

// key is the cache key for filters; filters only count when the orchestrator folds them.
func (s *Source[F, V]) key(filters F) string {
	if !s.o.fold {
		return s.cfg.Key
	}
	k := util.FilterKey(s.cfg.Key, filters)
	s.keysMu.Lock()
	s.keys[k] = struct{}{}
	s.keysMu.Unlock()
	return k
}

func (s *Source[F, V]) knownKeys() []string {
	s.keysMu.Lock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	s.keysMu.Unlock()
	sort.Strings(out)
	return out
}

func (s *Source[F, V]) update(cycle string, fn func(st *State[V])) {
	s.mu.Lock()
	fn(&s.st)
	st := s.st
	s.mu.Unlock()
	s.o.publish(cycle, statusOf(s.cfg.Name, st))
}

// prime exposes the cached entry, expired or not, before any fetch.
func (s *Source[F, V]) prime(ctx context.Context, cycle string, filters F) {
	s.settle.Lock()
	defer s.settle.Unlock()

	e, ok := s.cfg.Cache.Read(ctx, s.key(filters), s.cfg.TTL)
	if !ok {
		return
	}
	s.update(cycle, func(st *State[V]) {
		st.Data = e.Payload
		st.HasData = true
		st.IsFromCache = true
		st.Expired = e.IsExpired
		st.LastUpdatedAt = e.StoredAt
	})
}

// begin issues a new request token and marks the source loading.
func (s *Source[F, V]) begin(ctx context.Context, cycle string) uint64 {
	s.settle.Lock()
	defer s.settle.Unlock()

	gen, err := s.o.tokens.Bump(ctx, s.cfg.Name)
	if err != nil {
		// unusable token: the settlement will be discarded as superseded
		s.o.log.Error("request token bump failed", swrcache.Fields{"source": s.cfg.Name, "err": err})
		return 0
	}
	s.update(cycle, func(st *State[V]) {
		st.Loading = true
		st.Phase = PhaseLoading
	})
	return gen
}

func (s *Source[F, V]) run(ctx context.Context, cycle string, filters F, gen uint64) {
	if !genstore.Current(ctx, s.o.tokens, s.cfg.Name, gen) {
		s.discard(ctx, cycle, gen, "skipped before fetch")
		return
	}
	v, err := s.fetch(ctx, filters)
	s.apply(ctx, cycle, filters, gen, v, err)
}

func (s *Source[F, V]) fetch(ctx context.Context, filters F) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source %q panicked: %v", s.cfg.Name, r)
		}
	}()
	return s.cfg.Fetch(ctx, filters)
}

// apply settles one fetch. Superseded settlements change neither state nor storage.
func (s *Source[F, V]) apply(ctx context.Context, cycle string, filters F, gen uint64, v V, err error) {
	s.settle.Lock()
	defer s.settle.Unlock()

	if !genstore.Current(ctx, s.o.tokens, s.cfg.Name, gen) {
		s.discard(ctx, cycle, gen, "superseded")
		return
	}

	if err != nil {
		s.o.stat.Add(ctx, MetricFetchFailed, 1, "source", s.cfg.Name)
		s.o.log.Warn("source fetch failed", swrcache.Fields{"source": s.cfg.Name, "cycle": cycle, "err": err})
		s.update(cycle, func(st *State[V]) {
			st.Loading = false
			st.Err = err
			st.Phase = PhaseError
		})
		return
	}
	s.o.stat.Add(ctx, MetricFetch, 1, "source", s.cfg.Name)

	key := s.key(filters)
	cached, ok := s.cfg.Cache.Read(ctx, key, s.cfg.TTL)
	if ok && s.equal(cached.Payload, v) {
		s.o.stat.Add(ctx, MetricWriteSuppressed, 1, "source", s.cfg.Name)
		s.o.log.Debug("fetched payload unchanged, cache write suppressed", swrcache.Fields{"source": s.cfg.Name, "key": key})
		s.update(cycle, func(st *State[V]) {
			if !st.HasData {
				st.Data = cached.Payload
				st.HasData = true
				st.IsFromCache = true
				st.LastUpdatedAt = cached.StoredAt
			}
			st.Loading = false
			st.Err = nil
			st.Expired = false
			st.Phase = PhaseSuccess
		})
		return
	}

	s.cfg.Cache.Write(ctx, key, v)
	now := s.o.now()
	s.update(cycle, func(st *State[V]) {
		st.Data = v
		st.HasData = true
		st.IsFromCache = false
		st.Expired = false
		st.LastUpdatedAt = now
		st.Loading = false
		st.Err = nil
		st.Phase = PhaseSuccess
	})
}

func (s *Source[F, V]) discard(ctx context.Context, cycle string, gen uint64, why string) {
	s.o.stat.Add(ctx, MetricDiscarded, 1, "source", s.cfg.Name)
	s.o.log.Debug("settlement discarded", swrcache.Fields{"source": s.cfg.Name, "cycle": cycle, "token": gen, "reason": why})
}

func (s *Source[F, V]) invalidate(ctx context.Context) {
	s.cfg.Cache.InvalidateAll(ctx, s.knownKeys())
}
