package codec

import "fmt"

// LimitCodec wraps another codec to enforce a maximum payload size in both
// directions. Oversized payloads are refused on Encode (the cache write becomes a
// reported no-op) and on Decode (the stored entry is treated as undecodable).
// If Max <= 0, size limiting is disabled.
type LimitCodec[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec[V]
	// Max is the maximum permitted payload length in bytes.
	Max int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.Max > 0 && len(b) > c.Max {
		return nil, fmt.Errorf("payload too large: %d > %d", len(b), c.Max)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.Max)
	}
	return c.Inner.Decode(b)
}

// JSONText forwards the inner codec's declaration.
func (c LimitCodec[V]) JSONText() bool { return IsTextual(c.Inner) }
