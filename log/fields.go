// Package log holds swrcache.Logger adapters for common logging stacks, one per
// subpackage. Fields are emitted in key order so log lines are stable.
package log

import (
	"sort"

	"github.com/unkn0wn-root/swrcache"
)

// SortedKeys returns the keys of f in ascending order.
func SortedKeys(f swrcache.Fields) []string {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
