// Package swrcache implements a keyed staleness cache for stale-while-revalidate views.
// Entries carry the time they were stored and a schema version; reads hand back
// expired payloads flagged as expired so the caller can keep rendering while it
// revalidates.
//
// Components:
//   - Provider: byte store (in-memory, BigCache, Ristretto, Redis, go-cache, SQLite).
//   - Codec[V]: (de)serializes V <-> []byte (JSON, CBOR, msgpack, protobuf).
//   - Hooks / Logger: side channel for storage faults. Nothing is ever returned as an error.
//
// Keys:
//
//	entry:<ns>:<key>  - one entry per key, JSON envelope {"v","t","p"|"b"}
//
// TTL is not cache state. Callers pass it per read, so sources with different freshness
// requirements share one cache and one provider:
//
//	e, ok := cache.Read(ctx, "broker_rankings", 15*time.Minute)
//	if ok && e.IsExpired { /* render e.Payload, refetch in background */ }
//
// Bump Options.SchemaVersion whenever V changes shape; older entries are deleted on read.
package swrcache
