package swrcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bool64/stats"

	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/internal/util"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

const defaultSchemaVersion = "1"

type cache[V any] struct {
	ns       string
	provider pr.Provider
	codec    c.Codec[V]
	inline   bool
	version  string
	log      Logger
	hooks    Hooks
	stat     stats.Tracker
	now      func() time.Time
	enabled  bool
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("swrcache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("swrcache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("swrcache: namespace is required")
	}

	cc := &cache[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		inline:   c.IsTextual(opts.Codec),
		enabled:  !opts.Disabled,
	}

	// defaults
	cc.version = util.Coalesce(opts.SchemaVersion, defaultSchemaVersion)
	cc.log = util.Coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = util.Coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.stat = util.Coalesce[stats.Tracker](opts.Stats, stats.NoOp{})
	cc.now = opts.Now
	if cc.now == nil {
		cc.now = time.Now
	}

	return cc, nil
}

func (cc *cache[V]) Enabled() bool { return cc.enabled }

func (cc *cache[V]) Close(ctx context.Context) error {
	if cc.provider != nil {
		return cc.provider.Close(ctx)
	}
	return nil
}

func (cc *cache[V]) Write(ctx context.Context, key string, payload V) {
	if !cc.enabled {
		return
	}
	k := cc.entryKey(key)

	raw, err := cc.codec.Encode(payload)
	if err != nil {
		cc.fault(ctx, OpEncode, k, err)
		return
	}
	storedAt := cc.now().UnixMilli()
	b, err := wire.Encode(wire.Entry{
		SchemaVersion: cc.version,
		StoredAt:      storedAt,
		Payload:       raw,
		Inline:        cc.inline,
	})
	if err != nil {
		cc.fault(ctx, OpEncode, k, err)
		return
	}
	if err := cc.provider.Set(ctx, k, b); err != nil {
		cc.fault(ctx, OpWrite, k, err)
		return
	}
	cc.stat.Add(ctx, MetricWrite, 1, "namespace", cc.ns)
	cc.log.Debug("wrote cache entry", Fields{"key": key, "bytes": len(b), "storedAt": storedAt})
}

func (cc *cache[V]) Read(ctx context.Context, key string, ttl time.Duration) (Entry[V], bool) {
	var zero Entry[V]
	if !cc.enabled {
		return zero, false
	}
	k := cc.entryKey(key)

	raw, ok, err := cc.provider.Get(ctx, k)
	if err != nil {
		cc.fault(ctx, OpRead, k, err)
		return zero, false
	}
	if !ok {
		cc.stat.Add(ctx, MetricMiss, 1, "namespace", cc.ns)
		return zero, false
	}

	e, err := wire.Decode(raw)
	if err != nil {
		cc.heal(ctx, k, ReasonCorrupt) // self-heal corrupt
		return zero, false
	}
	if e.SchemaVersion != cc.version {
		cc.log.Debug("schema version mismatch", Fields{"key": key, "stored": e.SchemaVersion, "current": cc.version})
		cc.heal(ctx, k, ReasonVersionMismatch)
		return zero, false
	}
	v, err := cc.codec.Decode(e.Payload)
	if err != nil {
		cc.heal(ctx, k, ReasonValueDecode) // self-heal
		return zero, false
	}

	storedAt := time.UnixMilli(e.StoredAt)
	expired := Expired(storedAt, cc.now(), ttl)
	if expired {
		cc.stat.Add(ctx, MetricExpired, 1, "namespace", cc.ns)
	} else {
		cc.stat.Add(ctx, MetricHit, 1, "namespace", cc.ns)
	}
	return Entry[V]{Payload: v, StoredAt: storedAt, IsExpired: expired}, true
}

func (cc *cache[V]) Invalidate(ctx context.Context, key string) {
	if !cc.enabled {
		return
	}
	k := cc.entryKey(key)
	if err := cc.provider.Del(ctx, k); err != nil {
		cc.fault(ctx, OpDelete, k, err)
		return
	}
	cc.log.Debug("invalidated key", Fields{"key": key})
}

func (cc *cache[V]) InvalidateAll(ctx context.Context, keys []string) {
	for _, k := range keys {
		cc.Invalidate(ctx, k)
	}
}

// heal deletes an unusable entry so later reads do not trip over it again.
func (cc *cache[V]) heal(ctx context.Context, storageKey, reason string) {
	cc.stat.Add(ctx, MetricSelfHeal, 1, "namespace", cc.ns, "reason", reason)
	cc.hooks.SelfHeal(storageKey, reason)
	if err := cc.provider.Del(ctx, storageKey); err != nil {
		cc.fault(ctx, OpDelete, storageKey, err)
	}
}

func (cc *cache[V]) fault(ctx context.Context, op, storageKey string, err error) {
	se := &StorageError{Op: op, Key: storageKey, Err: err}
	cc.stat.Add(ctx, MetricStorageFault, 1, "namespace", cc.ns, "op", op)
	cc.hooks.StorageFault(se)
	if errors.Is(err, pr.ErrRejected) {
		cc.log.Debug("provider rejected write (pressure)", Fields{"key": storageKey})
		return
	}
	cc.log.Warn("cache storage fault", Fields{"op": op, "key": storageKey, "err": err})
}

func (cc *cache[V]) entryKey(userKey string) string {
	// isolate by namespace
	return util.EntryKey(cc.ns, userKey)
}
