// Package genstore hands out per-source request generations. A load bumps the
// generation of its source before fetching and may only apply its result while the
// generation is still the one it observed; a newer bump supersedes it.
package genstore

import (
	"context"
)

// GenStore abstracts where generations live.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, source string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, source string) (uint64, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}

// Current reports whether gen is still the latest generation of source.
// A store error counts as superseded.
func Current(ctx context.Context, s GenStore, source string, gen uint64) bool {
	cur, err := s.Snapshot(ctx, source)
	return err == nil && cur == gen
}
