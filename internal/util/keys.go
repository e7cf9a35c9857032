package util

import (
	"crypto/sha256"
	"fmt"

	json "github.com/goccy/go-json"
)

// EntryKey isolates a caller key inside a namespace.
func EntryKey(ns, key string) string {
	return "entry:" + ns + ":" + key
}

// FilterKey folds a filter set into a cache key: prefix + ":" + first 16 hex chars of
// sha256 over the filters' JSON form. Map keys are emitted sorted, so equal filter sets
// always produce the same key.
func FilterKey(prefix string, filters any) string {
	b, err := json.Marshal(filters)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", filters))
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%s:%x", prefix, sum)[:len(prefix)+1+16]
}
