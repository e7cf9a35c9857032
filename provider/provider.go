// Package provider defines the storage abstraction used by swrcache: a string-keyed
// byte store in the spirit of browser local storage. There is no TTL at this layer;
// freshness is decided by callers from the entry's stored-at time.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation).
//
// Important: the keyspace "entry:<ns>:" is owned by swrcache. Foreign writes under
// that prefix are treated as corruption and deleted on read.
package provider

import (
	"context"
	"errors"
)

// ErrRejected is returned by Set when the store refused the write under pressure
// (admission policy, size limit). Callers may treat it as a soft failure.
var ErrRejected = errors.New("provider: write rejected")

// Provider is a minimal byte store. Must be safe for concurrent use.
// Concurrent Sets on one key are last-writer-wins.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
