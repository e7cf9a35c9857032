package swrcache

import (
	"context"
	"time"

	"github.com/bool64/stats"

	c "github.com/unkn0wn-root/swrcache/codec"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Cache is the provider-agnostic staleness cache API. V is the caller's payload type
// and is never inspected by the cache.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Write stores payload under key with storedAt=now. Failures are reported to Hooks
	// and the Logger only.
	Write(ctx context.Context, key string, payload V)

	// Read returns the entry if present and valid for the current schema version.
	// IsExpired is computed against ttl; ttl <= 0 never expires.
	Read(ctx context.Context, key string, ttl time.Duration) (Entry[V], bool)

	// Invalidate deletes key. Deleting a missing key is not an error.
	Invalidate(ctx context.Context, key string)

	// InvalidateAll deletes every key in keys. The cache does not enumerate storage.
	InvalidateAll(ctx context.Context, keys []string)
}

// Entry is a successful Read.
type Entry[V any] struct {
	Payload   V
	StoredAt  time.Time
	IsExpired bool
}

// Expired reports whether an entry stored at storedAt is past ttl at now.
// The boundary itself (age == ttl) is not expired.
func Expired(storedAt, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(storedAt) > ttl
}

// Options tune the behavior of the cache.
// Namespace, Provider and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "advanced_analytics"
	Provider  pr.Provider
	Codec     c.Codec[V]

	SchemaVersion string           // "" => "1"; bump on incompatible payload changes
	Logger        Logger           // nil => NopLogger
	Hooks         Hooks            // nil => NopHooks
	Stats         stats.Tracker    // nil => stats.NoOp
	Now           func() time.Time // nil => time.Now
	Disabled      bool             // default false (enabled)
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
