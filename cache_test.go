package swrcache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bool64/stats"
	"google.golang.org/protobuf/types/known/structpb"

	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

type memProvider struct {
	mu   sync.Mutex
	m    map[string][]byte
	dels []string
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string][]byte)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = append([]byte(nil), value...)
	return nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dels = append(p.dels, key)
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

// failingProvider fails every call, like a full or unavailable store.
type failingProvider struct{ err error }

func (p failingProvider) Get(context.Context, string) ([]byte, bool, error) { return nil, false, p.err }
func (p failingProvider) Set(context.Context, string, []byte) error        { return p.err }
func (p failingProvider) Del(context.Context, string) error                { return p.err }
func (p failingProvider) Close(context.Context) error                      { return nil }

type recordingHooks struct {
	mu     sync.Mutex
	heals  []string
	faults []*StorageError
}

func (h *recordingHooks) SelfHeal(storageKey, reason string) {
	h.mu.Lock()
	h.heals = append(h.heals, storageKey+"|"+reason)
	h.mu.Unlock()
}

func (h *recordingHooks) StorageFault(err *StorageError) {
	h.mu.Lock()
	h.faults = append(h.faults, err)
	h.mu.Unlock()
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Accounts int    `json:"accounts"`
}

func newTestCache(t *testing.T, mp pr.Provider, optsOpt func(*Options[company])) Cache[company] {
	t.Helper()
	opts := Options[company]{
		Namespace: "advanced_analytics",
		Provider:  mp,
		Codec:     c.JSON[company]{},
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	cc, err := New[company](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

func TestNewRequiresFields(t *testing.T) {
	cases := map[string]Options[company]{
		"provider":  {Namespace: "ns", Codec: c.JSON[company]{}},
		"codec":     {Namespace: "ns", Provider: newMemProvider()},
		"namespace": {Provider: newMemProvider(), Codec: c.JSON[company]{}},
	}
	for name, opts := range cases {
		if _, err := New[company](opts); err == nil || !strings.Contains(err.Error(), name) {
			t.Fatalf("%s: expected error naming the field, got %v", name, err)
		}
	}
}

// TestWriteReadRoundTrip verifies payload, storedAt and the on-disk envelope.
func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	clk := &clock{t: time.UnixMilli(1_700_000_000_000)}
	cc := newTestCache(t, mp, func(o *Options[company]) {
		o.Now = clk.now
		o.SchemaVersion = "1.0.0"
	})
	defer cc.Close(ctx)

	if _, ok := cc.Read(ctx, "company_analytics", time.Minute); ok {
		t.Fatalf("expected miss on empty store")
	}

	v := company{ID: "c1", Name: "Acme", Accounts: 3}
	cc.Write(ctx, "company_analytics", v)

	e, ok := cc.Read(ctx, "company_analytics", time.Minute)
	if !ok {
		t.Fatalf("expected hit after write")
	}
	if e.Payload != v {
		t.Fatalf("payload mismatch: got %+v want %+v", e.Payload, v)
	}
	if !e.StoredAt.Equal(clk.t) {
		t.Fatalf("storedAt: got %v want %v", e.StoredAt, clk.t)
	}
	if e.IsExpired {
		t.Fatalf("fresh entry reported expired")
	}

	raw, ok, _ := mp.Get(ctx, "entry:advanced_analytics:company_analytics")
	if !ok {
		t.Fatalf("entry not stored under namespaced key; keys=%v", mp.m)
	}
	got, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("stored bytes are not a valid envelope: %v", err)
	}
	if got.SchemaVersion != "1.0.0" || got.StoredAt != clk.t.UnixMilli() || !got.Inline {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

// TestExpiryBoundary checks that age == ttl is fresh and ttl+1ms is expired,
// and that expired entries are still returned.
func TestExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.UnixMilli(1_700_000_000_000)}
	cc := newTestCache(t, newMemProvider(), func(o *Options[company]) { o.Now = clk.now })

	ttl := 2 * time.Minute
	cc.Write(ctx, "k", company{ID: "1"})

	clk.advance(ttl - time.Millisecond)
	if e, ok := cc.Read(ctx, "k", ttl); !ok || e.IsExpired {
		t.Fatalf("ttl-1ms: ok=%v expired=%v", ok, e.IsExpired)
	}
	clk.advance(time.Millisecond)
	if e, ok := cc.Read(ctx, "k", ttl); !ok || e.IsExpired {
		t.Fatalf("ttl: ok=%v expired=%v", ok, e.IsExpired)
	}
	clk.advance(time.Millisecond)
	e, ok := cc.Read(ctx, "k", ttl)
	if !ok || !e.IsExpired {
		t.Fatalf("ttl+1ms: ok=%v expired=%v", ok, e.IsExpired)
	}
	if e.Payload.ID != "1" {
		t.Fatalf("expired entry must keep its payload, got %+v", e.Payload)
	}

	// A non-positive ttl never expires.
	clk.advance(24 * time.Hour)
	if e, ok := cc.Read(ctx, "k", 0); !ok || e.IsExpired {
		t.Fatalf("ttl=0: ok=%v expired=%v", ok, e.IsExpired)
	}
}

func TestExpired(t *testing.T) {
	base := time.UnixMilli(1_000)
	cases := []struct {
		age  time.Duration
		ttl  time.Duration
		want bool
	}{
		{0, time.Second, false},
		{time.Second, time.Second, false},
		{time.Second + time.Millisecond, time.Second, true},
		{time.Hour, 0, false},
		{time.Hour, -time.Second, false},
		// clock went backwards
		{-time.Minute, time.Second, false},
	}
	for _, tc := range cases {
		if got := Expired(base, base.Add(tc.age), tc.ttl); got != tc.want {
			t.Fatalf("Expired(age=%v, ttl=%v)=%v want %v", tc.age, tc.ttl, got, tc.want)
		}
	}
}

// TestVersionMismatchSelfHeals writes under one schema version and reads under another.
func TestVersionMismatchSelfHeals(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recordingHooks{}

	v1 := newTestCache(t, mp, func(o *Options[company]) { o.SchemaVersion = "1.0.0" })
	v1.Write(ctx, "k", company{ID: "1"})

	v2 := newTestCache(t, mp, func(o *Options[company]) {
		o.SchemaVersion = "2.0.0"
		o.Hooks = hooks
	})
	if _, ok := v2.Read(ctx, "k", time.Minute); ok {
		t.Fatalf("entry from another schema version must miss")
	}
	if _, ok, _ := mp.Get(ctx, "entry:advanced_analytics:k"); ok {
		t.Fatalf("mismatched entry was not deleted")
	}
	if len(hooks.heals) != 1 || hooks.heals[0] != "entry:advanced_analytics:k|"+ReasonVersionMismatch {
		t.Fatalf("unexpected heals: %v", hooks.heals)
	}

	// and the old reader now misses too
	if _, ok := v1.Read(ctx, "k", time.Minute); ok {
		t.Fatalf("deleted entry should miss")
	}
}

// TestSelfHealOnCorrupt injects unparseable bytes and a well-formed envelope whose
// payload does not decode into the target type.
func TestSelfHealOnCorrupt(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recordingHooks{}
	st := &stats.TrackerMock{}
	cc := newTestCache(t, mp, func(o *Options[company]) {
		o.Hooks = hooks
		o.Stats = st
	})

	storageKey := "entry:advanced_analytics:bad"

	_ = mp.Set(ctx, storageKey, []byte("not-json"))
	if _, ok := cc.Read(ctx, "bad", time.Minute); ok {
		t.Fatalf("corrupt bytes should miss")
	}
	if _, ok, _ := mp.Get(ctx, storageKey); ok {
		t.Fatalf("corrupt entry was not deleted")
	}

	b, err := wire.Encode(wire.Entry{SchemaVersion: "1", StoredAt: 1, Payload: []byte(`"a string"`), Inline: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = mp.Set(ctx, storageKey, b)
	if _, ok := cc.Read(ctx, "bad", time.Minute); ok {
		t.Fatalf("undecodable payload should miss")
	}
	if _, ok, _ := mp.Get(ctx, storageKey); ok {
		t.Fatalf("undecodable entry was not deleted")
	}

	want := []string{storageKey + "|" + ReasonCorrupt, storageKey + "|" + ReasonValueDecode}
	if len(hooks.heals) != 2 || hooks.heals[0] != want[0] || hooks.heals[1] != want[1] {
		t.Fatalf("heals: got %v want %v", hooks.heals, want)
	}
	if got := st.Values()[MetricSelfHeal]; got != 2 {
		t.Fatalf("self heal metric: got %v want 2", got)
	}
}

// TestStorageFaultsAreSwallowed verifies that nothing escapes from a failing provider.
func TestStorageFaultsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	hooks := &recordingHooks{}
	cc := newTestCache(t, failingProvider{err: boom}, func(o *Options[company]) { o.Hooks = hooks })

	cc.Write(ctx, "k", company{ID: "1"})
	if _, ok := cc.Read(ctx, "k", time.Minute); ok {
		t.Fatalf("read from failing provider must miss")
	}
	cc.Invalidate(ctx, "k")

	if len(hooks.faults) != 3 {
		t.Fatalf("expected 3 faults, got %d", len(hooks.faults))
	}
	ops := []string{OpWrite, OpRead, OpDelete}
	for i, f := range hooks.faults {
		if f.Op != ops[i] {
			t.Fatalf("fault %d: op %q want %q", i, f.Op, ops[i])
		}
		if !errors.Is(f, boom) {
			t.Fatalf("fault %d does not wrap provider error: %v", i, f)
		}
		if f.Key != "entry:advanced_analytics:k" {
			t.Fatalf("fault %d: key %q", i, f.Key)
		}
	}
}

type failingCodec struct{}

func (failingCodec) Encode(company) ([]byte, error) { return nil, errors.New("unsupported value") }
func (failingCodec) Decode([]byte) (company, error) { return company{}, errors.New("unsupported value") }

func TestEncodeFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recordingHooks{}
	cc := newTestCache(t, mp, func(o *Options[company]) {
		o.Codec = failingCodec{}
		o.Hooks = hooks
	})

	cc.Write(ctx, "k", company{})
	if len(mp.m) != 0 {
		t.Fatalf("nothing should be stored, got %v", mp.m)
	}
	if len(hooks.faults) != 1 || hooks.faults[0].Op != OpEncode {
		t.Fatalf("expected one encode fault, got %v", hooks.faults)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)

	cc.Write(ctx, "a", company{ID: "a"})
	cc.Write(ctx, "b", company{ID: "b"})
	cc.Write(ctx, "c", company{ID: "c"})

	cc.Invalidate(ctx, "a")
	cc.Invalidate(ctx, "a")
	if _, ok := cc.Read(ctx, "a", 0); ok {
		t.Fatalf("a should be gone")
	}

	cc.InvalidateAll(ctx, []string{"b", "c", "never-written"})
	for _, k := range []string{"b", "c"} {
		if _, ok := cc.Read(ctx, k, 0); ok {
			t.Fatalf("%s should be gone", k)
		}
	}
	if len(mp.m) != 0 {
		t.Fatalf("store should be empty, got %v", mp.m)
	}
}

// Foreign keys outside the namespace are never touched.
func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	_ = mp.Set(ctx, "user_prefs", []byte(`{"theme":"dark"}`))

	a := newTestCache(t, mp, nil)
	b := newTestCache(t, mp, func(o *Options[company]) { o.Namespace = "other" })

	a.Write(ctx, "k", company{ID: "a"})
	b.Write(ctx, "k", company{ID: "b"})
	a.InvalidateAll(ctx, []string{"k"})

	if _, ok := a.Read(ctx, "k", 0); ok {
		t.Fatalf("a/k should be gone")
	}
	if e, ok := b.Read(ctx, "k", 0); !ok || e.Payload.ID != "b" {
		t.Fatalf("b/k should survive, ok=%v payload=%+v", ok, e.Payload)
	}
	if _, ok, _ := mp.Get(ctx, "user_prefs"); !ok {
		t.Fatalf("foreign key was removed")
	}
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, func(o *Options[company]) { o.Disabled = true })

	if cc.Enabled() {
		t.Fatalf("Enabled should be false")
	}
	cc.Write(ctx, "k", company{ID: "1"})
	if len(mp.m) != 0 {
		t.Fatalf("disabled cache wrote to the provider")
	}
	_ = mp.Set(ctx, "entry:advanced_analytics:k", []byte("junk"))
	if _, ok := cc.Read(ctx, "k", 0); ok {
		t.Fatalf("disabled cache must always miss")
	}
	cc.Invalidate(ctx, "k")
	if len(mp.dels) != 0 {
		t.Fatalf("disabled cache deleted from the provider")
	}
}

func TestBinaryCodecEnvelope(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc, err := New[*structpb.Struct](Options[*structpb.Struct]{
		Namespace: "advanced_analytics",
		Provider:  mp,
		Codec:     c.NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} }),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in, err := structpb.NewStruct(map[string]any{"stage": "Prospect", "count": 7.0})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	cc.Write(ctx, "funnel", in)

	raw, _, _ := mp.Get(ctx, "entry:advanced_analytics:funnel")
	if !strings.Contains(string(raw), `"b":"`) {
		t.Fatalf("binary payload should be stored base64 under b, got %s", raw)
	}

	e, ok := cc.Read(ctx, "funnel", time.Minute)
	if !ok {
		t.Fatalf("expected hit")
	}
	if got := e.Payload.GetFields()["stage"].GetStringValue(); got != "Prospect" {
		t.Fatalf("stage: %q", got)
	}
	if got := e.Payload.GetFields()["count"].GetNumberValue(); got != 7 {
		t.Fatalf("count: %v", got)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.UnixMilli(1_700_000_000_000)}
	st := &stats.TrackerMock{}
	cc := newTestCache(t, newMemProvider(), func(o *Options[company]) {
		o.Stats = st
		o.Now = clk.now
	})

	cc.Read(ctx, "k", time.Second) // miss
	cc.Write(ctx, "k", company{ID: "1"})
	cc.Read(ctx, "k", time.Second) // hit
	clk.advance(2 * time.Second)
	cc.Read(ctx, "k", time.Second) // expired

	want := map[string]float64{MetricMiss: 1, MetricWrite: 1, MetricHit: 1, MetricExpired: 1}
	got := st.Values()
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: got %v want %v (all: %v)", k, got[k], v, got)
		}
	}
}

func TestConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cc.Write(ctx, "k", company{ID: "same", Accounts: i})
			cc.Read(ctx, "k", time.Minute)
		}()
	}
	wg.Wait()

	// last writer wins; whatever is stored must be a whole, valid entry
	e, ok := cc.Read(ctx, "k", time.Minute)
	if !ok || e.Payload.ID != "same" {
		t.Fatalf("unexpected final entry ok=%v payload=%+v", ok, e.Payload)
	}
}
