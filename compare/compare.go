// Package compare decides whether a freshly fetched payload differs from the cached one.
//
// It is not a general deep-equality. Lists are compared as multisets of identity tokens
// so a server that re-sorts a list does not count as a change, and objects must carry
// the same keys with recursively equal values. Typed Go values are first normalized to
// their JSON tree, so struct tags decide field names.
//
// Numbers keep their literal text, so integer ids beyond 2^53 stay distinct.
//
// Known limitations: list elements are identified by their id-like field only, so two
// lists whose elements keep the same ids but change other fields compare equal. A value
// holding NaN equals nothing, itself included.
package compare

import (
	"bytes"
	"math/big"
	"reflect"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// DefaultIDFields are probed in order when reducing a list element to its identity token.
var DefaultIDFields = []string{
	"id", "ID", "Id", "_id", "uuid",
	"brokerId", "broker_id",
	"clientId", "client_id",
	"matchId", "match_id",
	"userId", "user_id",
}

// Comparator is the change-suppression predicate. The zero value uses DefaultIDFields.
type Comparator struct {
	IDFields []string
}

var std = Comparator{}

// New returns a Comparator probing idFields; none means DefaultIDFields.
func New(idFields ...string) Comparator {
	return Comparator{IDFields: idFields}
}

// Equal reports whether a and b are equal under the default Comparator.
func Equal(a, b any) bool { return std.Equal(a, b) }

func (c Comparator) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	na, ok := normalize(a)
	if !ok {
		return false
	}
	nb, ok := normalize(b)
	if !ok {
		return false
	}
	return c.equal(na, nb)
}

func (c Comparator) equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case json.Number:
		bv, ok := b.(json.Number)
		return ok && equalNumber(av, bv)
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		return ok && c.equalList(av, bv)
	case map[string]any:
		bv, ok := b.(map[string]any)
		return ok && c.equalObject(av, bv)
	}
	return false
}

func (c Comparator) equalList(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	ta, ok := c.tokens(a)
	if !ok {
		return false
	}
	tb, ok := c.tokens(b)
	if !ok {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

func (c Comparator) equalObject(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !c.equal(av, bv) {
			return false
		}
	}
	return true
}

// tokens returns the sorted identity tokens of list.
func (c Comparator) tokens(list []any) ([]string, bool) {
	out := make([]string, len(list))
	for i, el := range list {
		t, ok := c.token(el)
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	sort.Strings(out)
	return out, true
}

// token is "#<field>=<json>" for an element with an id-like field, else "=<json>" of
// the whole element. Map keys are marshalled in sorted order, so the form is stable.
func (c Comparator) token(el any) (string, bool) {
	if m, ok := el.(map[string]any); ok {
		for _, f := range c.idFields() {
			v, ok := m[f]
			if !ok || v == nil {
				continue
			}
			b, err := json.Marshal(v)
			if err != nil {
				return "", false
			}
			return "#" + f + "=" + string(b), true
		}
	}
	b, err := json.Marshal(el)
	if err != nil {
		return "", false
	}
	return "=" + string(b), true
}

func (c Comparator) idFields() []string {
	if len(c.IDFields) == 0 {
		return DefaultIDFields
	}
	return c.IDFields
}

// equalNumber compares two JSON number literals. Integers compare exactly, anything
// with a fraction or exponent as float64.
func equalNumber(a, b json.Number) bool {
	if a == b {
		return true
	}
	if isInteger(a) && isInteger(b) {
		x, okx := new(big.Int).SetString(string(a), 10)
		y, oky := new(big.Int).SetString(string(b), 10)
		return okx && oky && x.Cmp(y) == 0
	}
	x, errx := a.Float64()
	y, erry := b.Float64()
	return errx == nil && erry == nil && x == y
}

func isInteger(n json.Number) bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// normalize converts v to the generic JSON tree (nil, bool, json.Number, string,
// []any, map[string]any).
func normalize(v any) (any, bool) {
	switch v.(type) {
	case nil, bool, string:
		return v, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var out any
	if err := d.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}
